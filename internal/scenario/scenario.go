package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidStep is returned for a step naming no operation or several.
var ErrInvalidStep = errors.New("step must name exactly one operation")

// Scenario is a scripted editing session.
type Scenario struct {
	Name      string            `yaml:"name"`
	Settings  Settings          `yaml:"settings"`
	Documents []DocumentSpec    `yaml:"documents"`
	Scripts   map[string]string `yaml:"scripts"`
	Steps     []Step            `yaml:"steps"`
}

// Settings override engine limits for one scenario.
type Settings struct {
	MaxDepth      int  `yaml:"max_depth"`
	BulkThreshold *int `yaml:"bulk_threshold"`
}

// DocumentSpec is a document opened before the first step.
type DocumentSpec struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// Step is one operation. Exactly one field is set.
type Step struct {
	Open       *DocumentSpec `yaml:"open,omitempty"`
	Group      *GroupStep    `yaml:"group,omitempty"`
	Undo       string        `yaml:"undo,omitempty"`
	Redo       string        `yaml:"redo,omitempty"`
	Invalidate string        `yaml:"invalidate,omitempty"`
	Reload     *DocumentSpec `yaml:"reload,omitempty"`
	Close      string        `yaml:"close,omitempty"`
	Show       string        `yaml:"show,omitempty"`
	History    string        `yaml:"history,omitempty"`
	Confirm    *bool         `yaml:"confirm,omitempty"`
	Expect     *Expect       `yaml:"expect,omitempty"`
}

// GroupStep records and commits one command group.
type GroupStep struct {
	Name        string       `yaml:"name"`
	Global      bool         `yaml:"global"`
	Transparent bool         `yaml:"transparent"`
	Confirm     string       `yaml:"confirm"`
	Actions     []ActionStep `yaml:"actions"`
}

// ActionStep is one action of a group. Exactly one field is set.
type ActionStep struct {
	Edit        *EditStep   `yaml:"edit,omitempty"`
	Start       *MarkStep   `yaml:"start,omitempty"`
	Finish      *MarkStep   `yaml:"finish,omitempty"`
	Script      *ScriptStep `yaml:"script,omitempty"`
	NonUndoable []string    `yaml:"nonundoable,omitempty"`
}

// EditStep replaces Len bytes at At with Text.
type EditStep struct {
	Doc  string `yaml:"doc"`
	At   int    `yaml:"at"`
	Len  int    `yaml:"len"`
	Text string `yaml:"text"`
}

// MarkStep is a start or finish bracket mark.
type MarkStep struct {
	Name string   `yaml:"name"`
	Docs []string `yaml:"docs"`
}

// ScriptStep applies a loaded Lua script to a document.
type ScriptStep struct {
	Name string            `yaml:"name"`
	Doc  string            `yaml:"doc"`
	Args map[string]string `yaml:"args"`
}

// Expect checks a document. Unset fields are not checked.
type Expect struct {
	Doc  string  `yaml:"doc"`
	Text *string `yaml:"text"`
	Undo *int    `yaml:"undo"`
	Redo *int    `yaml:"redo"`
}

// Parse decodes a YAML scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that every step and action names one operation.
func (s *Scenario) Validate() error {
	for i, step := range s.Steps {
		if _, err := step.Kind(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Group == nil {
			continue
		}
		for j, a := range step.Group.Actions {
			if _, err := a.Kind(); err != nil {
				return fmt.Errorf("step %d action %d: %w", i+1, j+1, err)
			}
		}
	}
	return nil
}

// Kind returns the name of the step's operation.
func (s Step) Kind() (string, error) {
	var kinds []string
	add := func(set bool, kind string) {
		if set {
			kinds = append(kinds, kind)
		}
	}
	add(s.Open != nil, "open")
	add(s.Group != nil, "group")
	add(s.Undo != "", "undo")
	add(s.Redo != "", "redo")
	add(s.Invalidate != "", "invalidate")
	add(s.Reload != nil, "reload")
	add(s.Close != "", "close")
	add(s.Show != "", "show")
	add(s.History != "", "history")
	add(s.Confirm != nil, "confirm")
	add(s.Expect != nil, "expect")
	if len(kinds) != 1 {
		return "", fmt.Errorf("%w, got %v", ErrInvalidStep, kinds)
	}
	return kinds[0], nil
}

// Kind returns the name of the action's operation.
func (a ActionStep) Kind() (string, error) {
	var kinds []string
	if a.Edit != nil {
		kinds = append(kinds, "edit")
	}
	if a.Start != nil {
		kinds = append(kinds, "start")
	}
	if a.Finish != nil {
		kinds = append(kinds, "finish")
	}
	if a.Script != nil {
		kinds = append(kinds, "script")
	}
	if len(a.NonUndoable) > 0 {
		kinds = append(kinds, "nonundoable")
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("%w, got %v", ErrInvalidStep, kinds)
	}
	return kinds[0], nil
}

// String renders the step as a REPL line.
func (s Step) String() string {
	switch {
	case s.Open != nil:
		return fmt.Sprintf("open %s %s", s.Open.Name, strconv.Quote(s.Open.Text))
	case s.Group != nil:
		return s.Group.String()
	case s.Undo != "":
		return "undo " + s.Undo
	case s.Redo != "":
		return "redo " + s.Redo
	case s.Invalidate != "":
		return "invalidate " + s.Invalidate
	case s.Reload != nil:
		return fmt.Sprintf("reload %s %s", s.Reload.Name, strconv.Quote(s.Reload.Text))
	case s.Close != "":
		return "close " + s.Close
	case s.Show != "":
		return "show " + s.Show
	case s.History != "":
		return "history " + s.History
	case s.Confirm != nil:
		if *s.Confirm {
			return "confirm yes"
		}
		return "confirm no"
	case s.Expect != nil:
		return "expect " + s.Expect.Doc
	default:
		return "<empty>"
	}
}

// String renders the group header as a REPL line.
func (g *GroupStep) String() string {
	var b strings.Builder
	b.WriteString("group ")
	b.WriteString(strconv.Quote(g.Name))
	if g.Global {
		b.WriteString(" global")
	}
	if g.Transparent {
		b.WriteString(" transparent")
	}
	if g.Confirm != "" {
		b.WriteString(" confirm=" + g.Confirm)
	}
	fmt.Fprintf(&b, " (%d actions)", len(g.Actions))
	return b.String()
}
