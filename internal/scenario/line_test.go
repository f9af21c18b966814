package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"undo  a.txt", []string{"undo", "a.txt"}},
		{`insert a 0 "two words"`, []string{"insert", "a", "0", "two words"}},
		{`insert a 0 "tab\there \"q\""`, []string{"insert", "a", "0", "tab\there \"q\""}},
		{`open a ""`, []string{"open", "a", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := tokenize(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := tokenize(`insert a 0 "open`)
	assert.Error(t, err)
}

func TestParseLine(t *testing.T) {
	yes := true
	hello := "hello"
	tests := []struct {
		line string
		want Line
	}{
		{"# comment", Line{}},
		{"help", Line{Help: true}},
		{"end", Line{End: true}},
		{"undo a", Line{Step: &Step{Undo: "a"}}},
		{"history global", Line{Step: &Step{History: "global"}}},
		{"open a", Line{Step: &Step{Open: &DocumentSpec{Name: "a"}}}},
		{"confirm y", Line{Step: &Step{Confirm: &yes}}},
		{"expect a hello", Line{Step: &Step{Expect: &Expect{Doc: "a", Text: &hello}}}},
		{"reload a hello", Line{Step: &Step{Reload: &DocumentSpec{Name: "a", Text: "hello"}}}},
		{"group G global confirm=never", Line{Begin: &GroupStep{Name: "G", Global: true, Confirm: "never"}}},
		{"insert a 3 x", Line{Action: &ActionStep{Edit: &EditStep{Doc: "a", At: 3, Text: "x"}}}},
		{"delete a 1 2", Line{Action: &ActionStep{Edit: &EditStep{Doc: "a", At: 1, Len: 2}}}},
		{"edit a 1 2 x", Line{Action: &ActionStep{Edit: &EditStep{Doc: "a", At: 1, Len: 2, Text: "x"}}}},
		{"start r a b", Line{Action: &ActionStep{Start: &MarkStep{Name: "r", Docs: []string{"a", "b"}}}}},
		{"finish r a", Line{Action: &ActionStep{Finish: &MarkStep{Name: "r", Docs: []string{"a"}}}}},
		{"nonundoable a", Line{Action: &ActionStep{NonUndoable: []string{"a"}}}},
		{"script wrap a open=( close=)", Line{Action: &ActionStep{Script: &ScriptStep{
			Name: "wrap", Doc: "a", Args: map[string]string{"open": "(", "close": ")"},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"rewind a",
		"undo",
		"undo a b",
		"insert a x y",
		"delete a 1",
		"group",
		"group G loud",
		"confirm maybe",
		"script wrap",
		"script wrap a novalue",
		"start r",
		"nonundoable",
		"open",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseLine(line)
			assert.Error(t, err)
		})
	}

	_, err := ParseLine("rewind a")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestStepString(t *testing.T) {
	no := false
	assert.Equal(t, `open a "x y"`, Step{Open: &DocumentSpec{Name: "a", Text: "x y"}}.String())
	assert.Equal(t, "confirm no", Step{Confirm: &no}.String())
	assert.Equal(t, `group "G" global transparent confirm=always (0 actions)`,
		Step{Group: &GroupStep{Name: "G", Global: true, Transparent: true, Confirm: "always"}}.String())
}
