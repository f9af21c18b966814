package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bracket commits Start, middle and Finish groups on docA.
func bracket(t *testing.T, acc *Access, e *Engine, journal *[]string, startOpts ...GroupOption) (start, finish GroupHandle) {
	t.Helper()
	var err error
	first := append([]*Action{NewStartMark("Rename", docA)}, edits(journal, docA, "1")...)
	start, err = commitGroup(acc, e, "Rename", first, startOpts...)
	require.NoError(t, err)
	_, err = commitGroup(acc, e, "Typing", edits(journal, docA, "2"))
	require.NoError(t, err)
	last := append(edits(journal, docA, "3"), NewFinishMark("Rename done", docA))
	finish, err = commitGroup(acc, e, "Apply", last)
	require.NoError(t, err)
	return start, finish
}

func TestBracketWithoutGlobalAncestor(t *testing.T) {
	var journal []string
	e := New(newFakeWorkspace(docA))

	run(t, e, func(acc *Access) {
		_, finish := bracket(t, acc, e, &journal)
		g, _ := e.Group(acc, finish)
		assert.False(t, g.IsGlobal())
		assert.Equal(t, "Apply", g.Name())
		assert.Empty(t, e.UndoInfo(acc, GlobalRef))

		phase, name := e.MarkPhase(acc, docA)
		assert.Equal(t, MarkFinished, phase)
		assert.Equal(t, "Rename done", name)

		require.NoError(t, e.Undo(acc, docA))
		assert.Empty(t, e.UndoInfo(acc, docA), "bracket undone as one unit")
		require.NoError(t, e.Redo(acc, docA))
		assert.Empty(t, e.RedoInfo(acc, docA), "bracket redone as one unit")
	})

	assert.Equal(t, []string{
		"undo:3", "undo:2", "undo:1",
		"redo:1", "redo:2", "redo:3",
	}, journal)
}

func TestBracketPromotedByGlobalAncestor(t *testing.T) {
	var journal []string
	var asked []string
	e := New(newFakeWorkspace(docA), WithConfirmer(func(info GroupInfo, dir Direction) bool {
		asked = append(asked, dir.String()+":"+info.Name)
		return true
	}))

	run(t, e, func(acc *Access) {
		start, finish := bracket(t, acc, e, &journal, Global())

		g, _ := e.Group(acc, finish)
		assert.True(t, g.IsGlobal())
		assert.Equal(t, "Rename", g.Name(), "inherits the ancestor's name")
		assert.True(t, g.trailingFinishMark().IsGlobal())

		s, _ := e.Group(acc, start)
		assert.True(t, s.startMark().IsGlobal())
		assert.Len(t, e.UndoInfo(acc, GlobalRef), 2)

		require.NoError(t, e.Undo(acc, GlobalRef))
		assert.Empty(t, e.UndoInfo(acc, docA))
		assert.Empty(t, e.UndoInfo(acc, GlobalRef))

		require.NoError(t, e.Redo(acc, docA))
		assert.Len(t, e.UndoInfo(acc, docA), 3)
	})

	assert.Equal(t, []string{"undo:Rename", "redo:Rename"}, asked)
	assert.Equal(t, []string{
		"undo:3", "undo:2", "undo:1",
		"redo:1", "redo:2", "redo:3",
	}, journal)
}

func TestStartMarkStopsPromotion(t *testing.T) {
	var journal []string
	e := New(newFakeWorkspace(docA))

	run(t, e, func(acc *Access) {
		_, err := commitGroup(acc, e, "Project", edits(&journal, docA, "0"), Global())
		require.NoError(t, err)
		_, finish := bracket(t, acc, e, &journal)

		g, _ := e.Group(acc, finish)
		assert.False(t, g.IsGlobal(), "global group below the start mark is outside the bracket")
	})
}

func TestFinishWithoutStart(t *testing.T) {
	var journal []string
	e := New(newFakeWorkspace(docA))

	run(t, e, func(acc *Access) {
		last := append(edits(&journal, docA, "1"), NewFinishMark("Orphan", docA))
		_, err := commitGroup(acc, e, "Orphan", last)
		require.NoError(t, err)

		phase, _ := e.MarkPhase(acc, docA)
		assert.Equal(t, MarkFinished, phase)
		require.NoError(t, e.Undo(acc, docA))
	})
	assert.Equal(t, []string{"undo:1"}, journal)
}

func groupOf(actions ...*Action) *CommandGroup {
	return newCommandGroup("g", actions, []DocumentRef{docA}, groupConfig{})
}

func TestIsInsideStartFinishGroup(t *testing.T) {
	start := func() *Action { return NewStartMark("s", docA) }
	finish := func() *Action { return NewFinishMark("f", docA) }

	tests := []struct {
		name   string
		group  *CommandGroup
		isUndo bool
		inside bool
		want   bool
	}{
		{"no marks keeps outside", groupOf(), true, false, false},
		{"no marks keeps inside", groupOf(), false, true, true},
		{"balanced keeps state", groupOf(start(), finish()), true, true, true},
		{"undo enters at finish", groupOf(finish()), true, false, true},
		{"undo leaves at start", groupOf(start()), true, true, false},
		{"redo enters at start", groupOf(start()), false, false, true},
		{"redo leaves at finish", groupOf(finish()), false, true, false},
		{"more finishes on undo", groupOf(start(), finish(), finish()), true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.group.IsInsideStartFinishGroup(tt.isUndo, tt.inside))
		})
	}
}

func TestShouldAskConfirmation(t *testing.T) {
	globalStart := NewStartMark("s", docA)
	globalStart.global = true
	globalFinish := NewFinishMark("f", docA)
	globalFinish.global = true

	global := groupOf()
	global.global = true
	always := groupOf()
	always.policy = ConfirmAlways
	never := groupOf()
	never.global = true
	never.policy = ConfirmNever

	tests := []struct {
		name  string
		group *CommandGroup
		redo  bool
		want  bool
	}{
		{"plain group", groupOf(), false, false},
		{"global group", global, false, true},
		{"always policy", always, true, true},
		{"never policy on global", never, false, false},
		{"global finish on undo", groupOf(globalFinish), false, true},
		{"global finish on redo", groupOf(globalFinish), true, false},
		{"global start on redo", groupOf(globalStart), true, true},
		{"local start on redo", groupOf(NewStartMark("s", docA)), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.group.ShouldAskConfirmation(tt.redo))
		})
	}
}

func TestParseConfirmationPolicy(t *testing.T) {
	assert.Equal(t, ConfirmAlways, ParseConfirmationPolicy("always"))
	assert.Equal(t, ConfirmNever, ParseConfirmationPolicy("never"))
	assert.Equal(t, ConfirmDefault, ParseConfirmationPolicy("bogus"))
	assert.Equal(t, "never", ConfirmNever.String())
}

func TestGroupQueries(t *testing.T) {
	g := newCommandGroup("g", []*Action{NewEdit(&fakeAction{docs: []DocumentRef{docA}})}, []DocumentRef{docA, 5}, groupConfig{})
	assert.True(t, g.Affects(docA))
	assert.True(t, g.Affects(5))
	assert.False(t, g.Affects(docB))
	assert.Equal(t, []DocumentRef{docA, 5, GlobalRef}, g.stackRefs())

	single := groupOf()
	assert.Equal(t, []DocumentRef{docA}, single.stackRefs())

	none := newCommandGroup("n", nil, nil, groupConfig{})
	assert.Equal(t, []DocumentRef{GlobalRef}, none.stackRefs())
}

func TestBracketAcrossDocuments(t *testing.T) {
	var journal []string
	e := New(newFakeWorkspace(docA, docB))

	run(t, e, func(acc *Access) {
		first := append([]*Action{NewStartMark("rename", docA, docB)}, edits(&journal, docA, "a")...)
		_, err := commitGroup(acc, e, "Rename", first, Global())
		require.NoError(t, err)
		last := append(edits(&journal, docB, "b"), NewFinishMark("rename", docB))
		h, err := commitGroup(acc, e, "Rename b", last)
		require.NoError(t, err)

		g, _ := e.Group(acc, h)
		assert.True(t, g.IsGlobal())
		assert.Equal(t, []DocumentRef{docB, GlobalRef}, g.stackRefs())

		require.NoError(t, e.Undo(acc, docB))
		assert.Empty(t, e.UndoInfo(acc, GlobalRef))
		assert.Empty(t, e.UndoInfo(acc, docA))

		// The start of the bracket is on docA, the rest is only reachable
		// through the global stack.
		require.NoError(t, e.Redo(acc, docA))
		assert.Empty(t, e.RedoInfo(acc, GlobalRef))
		assert.Len(t, e.UndoInfo(acc, docB), 2)
	})

	assert.Equal(t, []string{"undo:b", "undo:a", "redo:a", "redo:b"}, journal)
}

func TestBracketWithDocumentlessMarks(t *testing.T) {
	tests := []struct {
		name       string
		startDocs  []DocumentRef
		global     bool
		wantGlobal bool
		wantName   string
		phaseRef   DocumentRef
	}{
		{"documentless start with global ancestor", nil, true, true, "Format", GlobalRef},
		{"documentless start without global ancestor", nil, false, false, "finish", GlobalRef},
		{"start on document with global ancestor", []DocumentRef{docA}, true, true, "Format", docA},
		{"start on document without global ancestor", []DocumentRef{docA}, false, false, "finish", docA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var journal []string
			e := New(newFakeWorkspace(docA))

			run(t, e, func(acc *Access) {
				_, err := commitGroup(acc, e, "Rename", []*Action{NewStartMark("rename", tt.startDocs...)})
				require.NoError(t, err)
				phase, _ := e.MarkPhase(acc, tt.phaseRef)
				require.Equal(t, MarkStarted, phase)

				_, err = commitGroup(acc, e, "Type", edits(&journal, docA, "1"))
				require.NoError(t, err)
				var opts []GroupOption
				if tt.global {
					opts = append(opts, Global())
				}
				_, err = commitGroup(acc, e, "Format", edits(&journal, docA, "2"), opts...)
				require.NoError(t, err)
				_, err = commitGroup(acc, e, "Type", edits(&journal, docA, "3"))
				require.NoError(t, err)

				h, err := commitGroup(acc, e, "finish", []*Action{NewFinishMark("rename")})
				require.NoError(t, err)

				g, ok := e.Group(acc, h)
				require.True(t, ok)
				assert.Equal(t, tt.wantGlobal, g.IsGlobal())
				assert.Equal(t, tt.wantName, g.Name())

				phase, name := e.MarkPhase(acc, tt.phaseRef)
				assert.Equal(t, MarkFinished, phase)
				assert.Equal(t, "rename", name)
			})
		})
	}
}
