package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned for a REPL line with an unknown verb.
var ErrUnknownCommand = errors.New("unknown command")

// Usage lists the REPL commands.
const Usage = `commands:
  open NAME [TEXT]                open a document
  insert DOC AT TEXT              insert text
  delete DOC AT LEN               delete bytes
  edit DOC AT LEN TEXT            replace bytes
  script NAME DOC [KEY=VALUE...]  apply a Lua script
  start NAME DOC...               start mark
  finish NAME DOC...              finish mark
  nonundoable DOC...              non-undoable marker
  group NAME [global] [transparent] [confirm=always|never]
                                  collect the following actions until end
  end                             commit the open group
  undo DOC|global                 undo
  redo DOC|global                 redo
  invalidate DOC                  invalidate history
  reload DOC TEXT                 replace text outside the history
  close DOC                       close a document
  show DOC                        print the text
  history DOC|global              print the stacks
  confirm yes|no                  answer future prompts
  expect DOC TEXT                 check the text
  help                            this text`

// Line is a parsed REPL line: either a step, an action to record, or a
// group delimiter.
type Line struct {
	Step   *Step
	Action *ActionStep
	Begin  *GroupStep
	End    bool
	Help   bool
}

// ParseLine parses one REPL line. Blank lines and lines starting with #
// parse to the zero Line.
func ParseLine(text string) (Line, error) {
	args, err := tokenize(text)
	if err != nil {
		return Line{}, err
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return Line{}, nil
	}
	verb, args := args[0], args[1:]

	switch verb {
	case "help", "?":
		return Line{Help: true}, nil
	case "end":
		return Line{End: true}, nil
	case "group":
		return parseGroup(args)
	case "insert", "delete", "edit", "script", "start", "finish", "nonundoable":
		a, err := parseAction(verb, args)
		if err != nil {
			return Line{}, err
		}
		return Line{Action: a}, nil
	}

	step, err := parseStep(verb, args)
	if err != nil {
		return Line{}, err
	}
	return Line{Step: step}, nil
}

func parseGroup(args []string) (Line, error) {
	if len(args) == 0 {
		return Line{}, errors.New("group: missing name")
	}
	g := &GroupStep{Name: args[0]}
	for _, flag := range args[1:] {
		switch {
		case flag == "global":
			g.Global = true
		case flag == "transparent":
			g.Transparent = true
		case strings.HasPrefix(flag, "confirm="):
			g.Confirm = strings.TrimPrefix(flag, "confirm=")
		default:
			return Line{}, fmt.Errorf("group: unknown flag %q", flag)
		}
	}
	return Line{Begin: g}, nil
}

func parseAction(verb string, args []string) (*ActionStep, error) {
	switch verb {
	case "insert":
		if err := arity(verb, args, 3); err != nil {
			return nil, err
		}
		at, err := atoi(verb, args[1])
		if err != nil {
			return nil, err
		}
		return &ActionStep{Edit: &EditStep{Doc: args[0], At: at, Text: args[2]}}, nil

	case "delete":
		if err := arity(verb, args, 3); err != nil {
			return nil, err
		}
		at, err := atoi(verb, args[1])
		if err != nil {
			return nil, err
		}
		n, err := atoi(verb, args[2])
		if err != nil {
			return nil, err
		}
		return &ActionStep{Edit: &EditStep{Doc: args[0], At: at, Len: n}}, nil

	case "edit":
		if err := arity(verb, args, 4); err != nil {
			return nil, err
		}
		at, err := atoi(verb, args[1])
		if err != nil {
			return nil, err
		}
		n, err := atoi(verb, args[2])
		if err != nil {
			return nil, err
		}
		return &ActionStep{Edit: &EditStep{Doc: args[0], At: at, Len: n, Text: args[3]}}, nil

	case "script":
		if len(args) < 2 {
			return nil, errors.New("script: want NAME DOC [KEY=VALUE...]")
		}
		s := &ScriptStep{Name: args[0], Doc: args[1]}
		for _, kv := range args[2:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("script: argument %q is not KEY=VALUE", kv)
			}
			if s.Args == nil {
				s.Args = make(map[string]string)
			}
			s.Args[k] = v
		}
		return &ActionStep{Script: s}, nil

	case "start", "finish":
		if len(args) < 2 {
			return nil, fmt.Errorf("%s: want NAME DOC...", verb)
		}
		m := &MarkStep{Name: args[0], Docs: args[1:]}
		if verb == "start" {
			return &ActionStep{Start: m}, nil
		}
		return &ActionStep{Finish: m}, nil

	default: // nonundoable
		if len(args) == 0 {
			return nil, errors.New("nonundoable: want DOC...")
		}
		return &ActionStep{NonUndoable: args}, nil
	}
}

func parseStep(verb string, args []string) (*Step, error) {
	switch verb {
	case "open":
		if len(args) < 1 || len(args) > 2 {
			return nil, errors.New("open: want NAME [TEXT]")
		}
		spec := &DocumentSpec{Name: args[0]}
		if len(args) == 2 {
			spec.Text = args[1]
		}
		return &Step{Open: spec}, nil
	case "reload":
		if err := arity(verb, args, 2); err != nil {
			return nil, err
		}
		return &Step{Reload: &DocumentSpec{Name: args[0], Text: args[1]}}, nil
	case "confirm":
		if err := arity(verb, args, 1); err != nil {
			return nil, err
		}
		var answer bool
		switch args[0] {
		case "yes", "y":
			answer = true
		case "no", "n":
		default:
			return nil, errors.New("confirm: want yes or no")
		}
		return &Step{Confirm: &answer}, nil
	case "expect":
		if err := arity(verb, args, 2); err != nil {
			return nil, err
		}
		text := args[1]
		return &Step{Expect: &Expect{Doc: args[0], Text: &text}}, nil
	}

	switch verb {
	case "undo", "redo", "invalidate", "close", "show", "history":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, verb)
	}
	if err := arity(verb, args, 1); err != nil {
		return nil, err
	}
	name := args[0]
	switch verb {
	case "undo":
		return &Step{Undo: name}, nil
	case "redo":
		return &Step{Redo: name}, nil
	case "invalidate":
		return &Step{Invalidate: name}, nil
	case "close":
		return &Step{Close: name}, nil
	case "show":
		return &Step{Show: name}, nil
	default:
		return &Step{History: name}, nil
	}
}

func arity(verb string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: want %d arguments, got %d", verb, n, len(args))
	}
	return nil
}

func atoi(verb, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", verb, s)
	}
	return n, nil
}

// tokenize splits a line on spaces. Double-quoted tokens use Go string
// escapes.
func tokenize(line string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(line) {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, errors.New("unterminated quoted string")
			}
			tok, err := strconv.Unquote(line[i : j+1])
			if err != nil {
				return nil, fmt.Errorf("bad quoted string %s: %w", line[i:j+1], err)
			}
			tokens = append(tokens, tok)
			i = j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' {
				j++
			}
			tokens = append(tokens, line[i:j])
			i = j
		}
	}
	return tokens, nil
}
