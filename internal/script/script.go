package script

import (
	"fmt"
	"maps"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undocore/internal/document"
	"github.com/dshills/undocore/internal/engine/history"
)

// Script is a loaded Lua script.
type Script struct {
	runtime *Runtime
	name    string
	redo    *lua.LFunction
	undo    *lua.LFunction
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// Apply runs the script's redo function on doc and returns the reversible
// action recording the call.
func (s *Script) Apply(doc *document.Document, args map[string]string) (*Action, error) {
	a := &Action{script: s, doc: doc, args: maps.Clone(args)}
	if err := a.Redo(); err != nil {
		return nil, err
	}
	return a, nil
}

// Action is a script invocation on one document. It satisfies
// history.Reversible: Undo calls the script's undo function and Redo its
// redo function with the same arguments.
type Action struct {
	script *Script
	doc    *document.Document
	args   map[string]string
}

// Undo runs the script's undo function.
func (a *Action) Undo() error {
	if err := a.script.runtime.invoke(a.script.undo, a.doc, a.args); err != nil {
		return fmt.Errorf("script %s undo: %w", a.script.name, err)
	}
	return nil
}

// Redo runs the script's redo function.
func (a *Action) Redo() error {
	if err := a.script.runtime.invoke(a.script.redo, a.doc, a.args); err != nil {
		return fmt.Errorf("script %s redo: %w", a.script.name, err)
	}
	return nil
}

// Documents returns the target document.
func (a *Action) Documents() []history.DocumentRef {
	return []history.DocumentRef{a.doc.Ref()}
}

// String describes the invocation.
func (a *Action) String() string {
	return fmt.Sprintf("script %s on %s", a.script.name, a.doc.Name())
}

var _ history.Reversible = (*Action)(nil)
