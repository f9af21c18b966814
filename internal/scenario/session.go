package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoGroup is returned by end without an open group.
var ErrNoGroup = errors.New("no open group")

// Session feeds REPL lines to a Runner. Actions entered between group and
// end are committed as one group; an action outside a group is committed
// on its own.
type Session struct {
	runner  *Runner
	pending *GroupStep
	in      *bufio.Scanner
}

// NewSession creates a session on r.
func NewSession(r *Runner) *Session {
	return &Session{runner: r}
}

// Runner returns the session's runner.
func (s *Session) Runner() *Runner {
	return s.runner
}

// InGroup reports whether a group is being collected.
func (s *Session) InGroup() bool {
	return s.pending != nil
}

// Prompt returns the prompt for the next line.
func (s *Session) Prompt() string {
	if s.pending != nil {
		return fmt.Sprintf("%s> ", s.pending.Name)
	}
	return "> "
}

// Exec parses and runs one line.
func (s *Session) Exec(text string) error {
	line, err := ParseLine(text)
	if err != nil {
		return err
	}

	switch {
	case line.Help:
		fmt.Fprintln(s.runner.out, Usage)
		return nil

	case line.Begin != nil:
		if s.pending != nil {
			return fmt.Errorf("group %q is still open", s.pending.Name)
		}
		s.pending = line.Begin
		return nil

	case line.End:
		if s.pending == nil {
			return ErrNoGroup
		}
		g := s.pending
		s.pending = nil
		if len(g.Actions) == 0 {
			return nil
		}
		return s.runner.Exec(Step{Group: g})

	case line.Action != nil:
		if s.pending != nil {
			s.pending.Actions = append(s.pending.Actions, *line.Action)
			return nil
		}
		kind, _ := line.Action.Kind()
		g := &GroupStep{Name: kind, Actions: []ActionStep{*line.Action}}
		return s.runner.Exec(Step{Group: g})

	case line.Step != nil:
		if s.pending != nil {
			return fmt.Errorf("finish group %q with end first", s.pending.Name)
		}
		return s.runner.Exec(*line.Step)
	}
	return nil
}

// Run executes every line read from in, reporting errors to the transcript.
// It stops at end of input.
func (s *Session) Run(in io.Reader) error {
	return s.RunWith(in, nil)
}

// RunWith is like Run and calls prompt before each line when set.
func (s *Session) RunWith(in io.Reader, prompt func(string)) error {
	s.in = bufio.NewScanner(in)
	defer func() { s.in = nil }()
	for {
		if prompt != nil {
			prompt(s.Prompt())
		}
		if !s.in.Scan() {
			return s.in.Err()
		}
		if err := s.Exec(s.in.Text()); err != nil {
			fmt.Fprintf(s.runner.out, "error: %v\n", err)
		}
	}
}

// Ask writes question and reads a yes/no answer from the session's input.
// Without input, or at end of input, the answer is no.
func (s *Session) Ask(question string) bool {
	fmt.Fprintf(s.runner.out, "%s [y/N] ", question)
	if s.in == nil || !s.in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s.in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}
