package scenario

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/undocore/internal/document"
	"github.com/dshills/undocore/internal/engine/history"
	"github.com/dshills/undocore/internal/script"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestScenarioGolden(t *testing.T) {
	s, err := LoadFile("testdata/scenarios/bracket.yaml")
	require.NoError(t, err)

	rt := script.New()
	defer rt.Close()

	var out bytes.Buffer
	r := NewRunner(&out, WithScripts(rt), WithEcho(true))
	require.NoError(t, r.Run(s))
	assert.Equal(t, 1, r.Failures())

	newGolden(t).Assert(t, "bracket", out.Bytes())
}

func TestSessionGolden(t *testing.T) {
	in, err := os.Open("testdata/repl/session.txt")
	require.NoError(t, err)
	defer in.Close()

	var out bytes.Buffer
	sess := NewSession(NewRunner(&out))
	require.NoError(t, sess.Run(in))
	assert.Zero(t, sess.Runner().Failures())

	newGolden(t).Assert(t, "session", out.Bytes())
}

func TestParseRejectsAmbiguousSteps(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"two operations", "steps:\n  - undo: a\n    redo: a\n"},
		{"empty step", "steps:\n  - {}\n"},
		{"empty action", "steps:\n  - group: {name: g, actions: [{}]}\n"},
		{"unknown key", "steps:\n  - rewind: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("steps:\n  - undo: a\n    redo: a\n"))
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestRunStopsAtMalformedStep(t *testing.T) {
	s, err := Parse([]byte(`
documents:
  - {name: a, text: ""}
steps:
  - undo: a
  - undo: missing
  - undo: a
`))
	require.NoError(t, err)

	var out bytes.Buffer
	err = NewRunner(&out).Run(s)
	assert.ErrorIs(t, err, ErrUnknownDocument)
	assert.Contains(t, err.Error(), "step 2 (undo missing)")
	assert.Equal(t, 1, strings.Count(out.String(), "nothing to replay"))
}

func TestScriptsNeedRuntime(t *testing.T) {
	s, err := Parse([]byte("scripts:\n  x: 'return {}'\n"))
	require.NoError(t, err)
	assert.Error(t, NewRunner(&bytes.Buffer{}).Run(s))
}

func TestSettingsApplied(t *testing.T) {
	s, err := Parse([]byte(`
settings:
  max_depth: 2
documents:
  - {name: a, text: ""}
steps:
  - group: {name: g1, actions: [{edit: {doc: a, text: "1"}}]}
  - group: {name: g2, actions: [{edit: {doc: a, text: "2"}}]}
  - group: {name: g3, actions: [{edit: {doc: a, text: "3"}}]}
  - expect: {doc: a, text: "321", undo: 2}
`))
	require.NoError(t, err)

	var out bytes.Buffer
	r := NewRunner(&out)
	require.NoError(t, r.Run(s))
	assert.Zero(t, r.Failures(), out.String())
}

func TestTransparentAndNonUndoable(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(&out)
	sess := NewSession(r)

	for _, line := range []string{
		`open a "x"`,
		`insert a 1 "y"`,
		`group Format transparent`,
		`insert a 0 " "`,
		`end`,
		`undo a`,
		`expect a x`,
		`redo a`,
		`expect a " xy"`,
		`group Save`,
		`nonundoable a`,
		`end`,
		`undo a`,
	} {
		require.NoError(t, sess.Exec(line), line)
	}
	assert.Zero(t, r.Failures(), out.String())
	assert.Contains(t, out.String(), `committed "Save" t=3 [a] non-undoable`)
	assert.Contains(t, out.String(), "command group cannot be undone")
}

func TestConfirmationDecline(t *testing.T) {
	var out bytes.Buffer
	var asked []string
	r := NewRunner(&out, WithAnswer(func(info history.GroupInfo, dir history.Direction) bool {
		asked = append(asked, info.Name)
		return false
	}))
	sess := NewSession(r)

	for _, line := range []string{
		`open a ""`,
		`group Project global`,
		`insert a 0 "p"`,
		`end`,
		`undo a`,
		`expect a p`,
	} {
		require.NoError(t, sess.Exec(line), line)
	}
	assert.Equal(t, []string{"Project"}, asked)
	assert.Contains(t, out.String(), `confirm undo of "Project": no`)
	assert.Contains(t, out.String(), "replay declined")
	assert.Zero(t, r.Failures())
}

func TestCloseDocument(t *testing.T) {
	var out bytes.Buffer
	sess := NewSession(NewRunner(&out))

	for _, line := range []string{
		`open a "1"`,
		`open b "2"`,
		`group Both`,
		`insert a 1 "!"`,
		`insert b 1 "!"`,
		`end`,
		`close a`,
		`undo global`,
	} {
		require.NoError(t, sess.Exec(line), line)
	}
	assert.Contains(t, out.String(), "closed a")
	assert.Contains(t, out.String(), "command group is invalid")
	assert.ErrorIs(t, sess.Exec(`show a`), ErrUnknownDocument)
}

func TestSessionGroupErrors(t *testing.T) {
	sess := NewSession(NewRunner(&bytes.Buffer{}))
	assert.Equal(t, "> ", sess.Prompt())

	require.NoError(t, sess.Exec(`group G`))
	assert.True(t, sess.InGroup())
	assert.Equal(t, "G> ", sess.Prompt())
	assert.Error(t, sess.Exec(`group H`))
	assert.Error(t, sess.Exec(`undo a`))
	require.NoError(t, sess.Exec(`end`))
	assert.False(t, sess.InGroup())
	assert.ErrorIs(t, sess.Exec(`end`), ErrNoGroup)
}

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	sess := NewSession(NewRunner(&out))
	assert.False(t, sess.Ask("no input?"))

	var answers []bool
	r := NewRunner(&out, WithAnswer(func(info history.GroupInfo, dir history.Direction) bool {
		ok := sess.Ask("really?")
		answers = append(answers, ok)
		return ok
	}))
	sess = NewSession(r)
	input := strings.Join([]string{
		`open a ""`,
		`group G global`,
		`insert a 0 "x"`,
		`end`,
		`undo a`,
		`yes`,
		`show a`,
	}, "\n")
	require.NoError(t, sess.Run(strings.NewReader(input)))
	assert.Equal(t, []bool{true}, answers)
	assert.Contains(t, out.String(), "really? [y/N] ")
	assert.Contains(t, out.String(), `a: ""`)
}

func TestPostDuringReplay(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(&out)
	require.NoError(t, r.Exec(Step{Open: &DocumentSpec{Name: "a.go", Text: "foo"}}))
	for _, text := range []string{"1", "2", "3"} {
		require.NoError(t, r.Exec(Step{Group: &GroupStep{
			Name:    "Type " + text,
			Actions: []ActionStep{{Edit: &EditStep{Doc: "a.go", At: 0, Text: text}}},
		}}))
	}

	var armed atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	r.Workspace().OnChange(func(*document.Document, uint64) {
		if armed.CompareAndSwap(true, false) {
			close(started)
			<-release
		}
	})

	armed.Store(true)
	stepDone := make(chan error, 1)
	go func() { stepDone <- r.Exec(Step{Undo: "a.go"}) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("undo did not start")
	}

	var applied atomic.Bool
	r.Post(func(acc *history.Access) error {
		applied.Store(true)
		return r.Engine().SetMaxDepth(acc, 1)
	})
	assert.False(t, applied.Load(), "ran while the engine was replaying")
	close(release)

	select {
	case err := <-stepDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("undo did not finish")
	}
	assert.True(t, applied.Load())

	err := r.Engine().WithExclusiveAccess(func(acc *history.Access) error {
		assert.Len(t, r.Engine().UndoInfo(acc, 1), 1)
		return nil
	})
	require.NoError(t, err)
}

func TestPostWhenIdle(t *testing.T) {
	r := NewRunner(&bytes.Buffer{})

	ran := false
	r.Post(func(*history.Access) error {
		ran = true
		return nil
	})
	assert.True(t, ran)

	r.Post(func(*history.Access) error { return errors.New("bad limits") })
	require.NoError(t, r.Exec(Step{Open: &DocumentSpec{Name: "a.go", Text: "x"}}))
}
