package scenario

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/undocore/internal/document"
	"github.com/dshills/undocore/internal/engine/history"
	"github.com/dshills/undocore/internal/logging"
	"github.com/dshills/undocore/internal/script"
)

// ErrUnknownDocument is returned for a step naming a document that is not open.
var ErrUnknownDocument = errors.New("unknown document")

// Answer decides a confirmation prompt.
type Answer func(info history.GroupInfo, dir history.Direction) bool

// Runner executes steps against its own workspace and engine and writes a
// transcript of what happened.
type Runner struct {
	out     io.Writer
	logger  *logging.Logger
	ws      *document.Workspace
	engine  *history.Engine
	scripts *script.Runtime
	answer  Answer
	echo    bool

	refs  map[string]history.DocumentRef
	names map[history.DocumentRef]string

	failures int

	postMu sync.Mutex
	posted []func(acc *history.Access) error
}

// Option configures a Runner.
type Option func(*runnerConfig)

type runnerConfig struct {
	logger     *logging.Logger
	scripts    *script.Runtime
	answer     Answer
	echo       bool
	engineOpts []history.Option
}

// WithLogger sets the runner's logger. The engine logs through it too.
func WithLogger(l *logging.Logger) Option {
	return func(c *runnerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithScripts sets the script runtime used by script actions.
func WithScripts(rt *script.Runtime) Option {
	return func(c *runnerConfig) {
		c.scripts = rt
	}
}

// WithAnswer sets how confirmation prompts are decided. The default
// answers yes.
func WithAnswer(a Answer) Option {
	return func(c *runnerConfig) {
		if a != nil {
			c.answer = a
		}
	}
}

// WithEcho writes every step to the transcript before running it.
func WithEcho(on bool) Option {
	return func(c *runnerConfig) {
		c.echo = on
	}
}

// WithEngineOptions passes options to the engine.
func WithEngineOptions(opts ...history.Option) Option {
	return func(c *runnerConfig) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// NewRunner creates a runner writing its transcript to out.
func NewRunner(out io.Writer, opts ...Option) *Runner {
	cfg := runnerConfig{
		logger: logging.Nop(),
		answer: func(history.GroupInfo, history.Direction) bool { return true },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runner{
		out:     out,
		logger:  cfg.logger.WithComponent("scenario"),
		ws:      document.NewWorkspace(),
		scripts: cfg.scripts,
		answer:  cfg.answer,
		echo:    cfg.echo,
		refs:    make(map[string]history.DocumentRef),
		names:   make(map[history.DocumentRef]string),
	}
	engineOpts := append([]history.Option{
		history.WithLogger(cfg.logger),
		history.WithConfirmer(r.confirm),
	}, cfg.engineOpts...)
	r.engine = history.New(r.ws, engineOpts...)
	return r
}

// Engine returns the runner's engine.
func (r *Runner) Engine() *history.Engine {
	return r.engine
}

// Workspace returns the runner's documents.
func (r *Runner) Workspace() *document.Workspace {
	return r.ws
}

// Failures returns the number of failed expectations so far.
func (r *Runner) Failures() int {
	return r.failures
}

// Run applies the scenario's settings, opens its documents, loads its
// scripts and executes its steps. It stops at the first malformed step.
// Engine refusals and failed expectations are reported in the transcript.
func (r *Runner) Run(s *Scenario) error {
	if s.Name != "" {
		r.printf("# %s\n", s.Name)
	}
	if err := r.applySettings(s.Settings); err != nil {
		return err
	}
	for _, d := range s.Documents {
		if err := r.Exec(Step{Open: &DocumentSpec{Name: d.Name, Text: d.Text}}); err != nil {
			return err
		}
	}
	if err := r.loadScripts(s.Scripts); err != nil {
		return err
	}
	for i, step := range s.Steps {
		if err := r.Exec(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step, err)
		}
	}
	r.printf("# %d expectation(s) failed\n", r.failures)
	return nil
}

func (r *Runner) applySettings(s Settings) error {
	return r.engine.WithExclusiveAccess(func(acc *history.Access) error {
		if s.MaxDepth > 0 {
			if err := r.engine.SetMaxDepth(acc, s.MaxDepth); err != nil {
				return err
			}
		}
		if s.BulkThreshold != nil {
			if err := r.engine.SetBulkThreshold(acc, *s.BulkThreshold); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Runner) loadScripts(sources map[string]string) error {
	if len(sources) == 0 {
		return nil
	}
	if r.scripts == nil {
		return errors.New("scenario defines scripts but no script runtime is configured")
	}
	for _, name := range slices.Sorted(maps.Keys(sources)) {
		if _, err := r.scripts.Load(name, sources[name]); err != nil {
			return err
		}
	}
	return nil
}

// Exec runs one step. Errors are returned for steps that cannot be run at
// all, such as unknown documents or scripts.
func (r *Runner) Exec(step Step) error {
	kind, err := step.Kind()
	if err != nil {
		return err
	}
	if r.echo {
		r.printf("> %s\n", step)
	}
	r.logger.Debug("step %s", kind)

	switch kind {
	case "open":
		return r.open(step.Open)
	case "confirm":
		answer := *step.Confirm
		r.answer = func(history.GroupInfo, history.Direction) bool { return answer }
		return nil
	}

	return r.engine.WithExclusiveAccess(func(acc *history.Access) error {
		r.drain(acc)
		defer r.drain(acc)
		switch kind {
		case "group":
			return r.group(acc, step.Group)
		case "undo":
			return r.replay(acc, step.Undo, history.Undo)
		case "redo":
			return r.replay(acc, step.Redo, history.Redo)
		case "invalidate":
			return r.invalidate(acc, step.Invalidate)
		case "reload":
			return r.reload(acc, step.Reload)
		case "close":
			return r.close(acc, step.Close)
		case "show":
			return r.show(step.Show)
		case "history":
			return r.history(acc, step.History)
		case "expect":
			return r.expect(acc, step.Expect)
		}
		return fmt.Errorf("%w: %s", ErrInvalidStep, kind)
	})
}

// Post queues fn to run with exclusive access to the runner's engine. It
// runs right away when the engine is free, otherwise around the step being
// executed. Post may be called from any goroutine except from inside a step.
func (r *Runner) Post(fn func(acc *history.Access) error) {
	r.postMu.Lock()
	r.posted = append(r.posted, fn)
	r.postMu.Unlock()

	err := r.engine.WithExclusiveAccess(func(acc *history.Access) error {
		r.drain(acc)
		return nil
	})
	if err != nil {
		r.logger.Debug("posted work deferred: %v", err)
	}
}

// drain runs the queued functions. Failures are logged, not returned, so a
// bad posted function does not fail the step it runs next to.
func (r *Runner) drain(acc *history.Access) {
	r.postMu.Lock()
	fns := r.posted
	r.posted = nil
	r.postMu.Unlock()

	for _, fn := range fns {
		if err := fn(acc); err != nil {
			r.logger.Warn("posted work: %v", err)
		}
	}
}

func (r *Runner) confirm(info history.GroupInfo, dir history.Direction) bool {
	ok := r.answer(info, dir)
	answer := "no"
	if ok {
		answer = "yes"
	}
	r.printf("confirm %s of %q: %s\n", dir, info.Name, answer)
	return ok
}

func (r *Runner) open(spec *DocumentSpec) error {
	d, err := r.ws.Open(spec.Name, spec.Text)
	if err != nil {
		return fmt.Errorf("open %s: %w", spec.Name, err)
	}
	r.refs[d.Name()] = d.Ref()
	r.names[d.Ref()] = d.Name()
	r.printf("opened %s as %s\n", d.Name(), d.Ref())
	return nil
}

func (r *Runner) document(name string) (*document.Document, error) {
	ref, ok := r.refs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, name)
	}
	d, ok := r.ws.Get(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, name)
	}
	return d, nil
}

// target resolves a document name or "global".
func (r *Runner) target(name string) (history.DocumentRef, error) {
	if name == "global" {
		return history.GlobalRef, nil
	}
	d, err := r.document(name)
	if err != nil {
		return 0, err
	}
	return d.Ref(), nil
}

func (r *Runner) targets(names []string) ([]history.DocumentRef, error) {
	refs := make([]history.DocumentRef, 0, len(names))
	for _, name := range names {
		d, err := r.document(name)
		if err != nil {
			return nil, err
		}
		refs = append(refs, d.Ref())
	}
	return refs, nil
}

func (r *Runner) group(acc *history.Access, g *GroupStep) error {
	var opts []history.GroupOption
	if g.Global {
		opts = append(opts, history.Global())
	}
	if g.Transparent {
		opts = append(opts, history.Transparent())
	}
	if g.Confirm != "" {
		opts = append(opts, history.WithConfirmation(history.ParseConfirmationPolicy(g.Confirm)))
	}

	b, err := r.engine.BeginGroup(acc, g.Name, opts...)
	if err != nil {
		return err
	}
	for i, as := range g.Actions {
		a, err := r.action(as)
		if err != nil {
			b.Discard()
			return fmt.Errorf("group %q action %d: %w", g.Name, i+1, err)
		}
		if err := b.Record(a); err != nil {
			b.Discard()
			return err
		}
	}

	h, err := b.Commit(acc)
	if err != nil {
		return fmt.Errorf("group %q: %w", g.Name, err)
	}
	cg, _ := r.engine.Group(acc, h)
	r.printf("committed %s\n", r.describe(cg.Info()))
	return nil
}

func (r *Runner) action(as ActionStep) (*history.Action, error) {
	switch {
	case as.Edit != nil:
		d, err := r.document(as.Edit.Doc)
		if err != nil {
			return nil, err
		}
		ed, err := d.Replace(document.Range{Start: as.Edit.At, End: as.Edit.At + as.Edit.Len}, as.Edit.Text)
		if err != nil {
			return nil, err
		}
		return history.NewEdit(ed), nil

	case as.Start != nil:
		refs, err := r.targets(as.Start.Docs)
		if err != nil {
			return nil, err
		}
		return history.NewStartMark(as.Start.Name, refs...), nil

	case as.Finish != nil:
		refs, err := r.targets(as.Finish.Docs)
		if err != nil {
			return nil, err
		}
		return history.NewFinishMark(as.Finish.Name, refs...), nil

	case as.Script != nil:
		if r.scripts == nil {
			return nil, errors.New("no script runtime configured")
		}
		s, err := r.scripts.Lookup(as.Script.Name)
		if err != nil {
			return nil, err
		}
		d, err := r.document(as.Script.Doc)
		if err != nil {
			return nil, err
		}
		sa, err := s.Apply(d, as.Script.Args)
		if err != nil {
			return nil, err
		}
		return history.NewEdit(sa), nil

	case len(as.NonUndoable) > 0:
		refs, err := r.targets(as.NonUndoable)
		if err != nil {
			return nil, err
		}
		return history.NewNonUndoable(refs...), nil
	}
	return nil, ErrInvalidStep
}

func (r *Runner) replay(acc *history.Access, name string, dir history.Direction) error {
	ref, err := r.target(name)
	if err != nil {
		return err
	}
	var top []history.GroupInfo
	if dir == history.Undo {
		top = r.engine.UndoInfo(acc, ref)
	} else {
		top = r.engine.RedoInfo(acc, ref)
	}

	if dir == history.Undo {
		err = r.engine.Undo(acc, ref)
	} else {
		err = r.engine.Redo(acc, ref)
	}
	if err != nil {
		r.printf("%s %s: %v\n", dir, name, err)
		return nil
	}
	r.printf("%s %s: %q\n", dir, name, top[len(top)-1].Name)
	return nil
}

func (r *Runner) invalidate(acc *history.Access, name string) error {
	d, err := r.document(name)
	if err != nil {
		return err
	}
	if err := r.engine.Invalidate(acc, d.Ref()); err != nil {
		return err
	}
	r.printf("invalidated %s\n", name)
	return nil
}

func (r *Runner) reload(acc *history.Access, spec *DocumentSpec) error {
	d, err := r.document(spec.Name)
	if err != nil {
		return err
	}
	if err := d.Reload(spec.Text); err != nil {
		return err
	}
	if err := r.engine.Invalidate(acc, d.Ref()); err != nil {
		return err
	}
	r.printf("reloaded %s, history invalidated\n", spec.Name)
	return nil
}

func (r *Runner) close(acc *history.Access, name string) error {
	d, err := r.document(name)
	if err != nil {
		return err
	}
	if err := r.engine.CloseDocument(acc, d.Ref()); err != nil {
		return err
	}
	if err := r.ws.Close(d.Ref()); err != nil {
		return err
	}
	delete(r.refs, name)
	r.printf("closed %s\n", name)
	return nil
}

func (r *Runner) show(name string) error {
	d, err := r.document(name)
	if err != nil {
		return err
	}
	r.printf("%s: %q\n", name, d.Text())
	return nil
}

func (r *Runner) history(acc *history.Access, name string) error {
	ref, err := r.target(name)
	if err != nil {
		return err
	}
	r.printStack(name, "undo", r.engine.UndoInfo(acc, ref))
	r.printStack(name, "redo", r.engine.RedoInfo(acc, ref))
	return nil
}

func (r *Runner) printStack(name, label string, infos []history.GroupInfo) {
	if len(infos) == 0 {
		r.printf("%s %s: empty\n", name, label)
		return
	}
	r.printf("%s %s:\n", name, label)
	for i := len(infos) - 1; i >= 0; i-- {
		r.printf("  %s\n", r.describe(infos[i]))
	}
}

func (r *Runner) expect(acc *history.Access, e *Expect) error {
	d, err := r.document(e.Doc)
	if err != nil {
		return err
	}
	var problems []string
	if e.Text != nil && d.Text() != *e.Text {
		problems = append(problems, fmt.Sprintf("text %q, want %q", d.Text(), *e.Text))
	}
	if e.Undo != nil {
		if n := len(r.engine.UndoInfo(acc, d.Ref())); n != *e.Undo {
			problems = append(problems, fmt.Sprintf("undo depth %d, want %d", n, *e.Undo))
		}
	}
	if e.Redo != nil {
		if n := len(r.engine.RedoInfo(acc, d.Ref())); n != *e.Redo {
			problems = append(problems, fmt.Sprintf("redo depth %d, want %d", n, *e.Redo))
		}
	}
	if len(problems) > 0 {
		r.failures++
		r.printf("FAIL %s: %s\n", e.Doc, strings.Join(problems, "; "))
		return nil
	}
	r.printf("ok %s\n", e.Doc)
	return nil
}

// describe renders a group for the transcript.
func (r *Runner) describe(info history.GroupInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q t=%d [", info.Name, info.Timestamp)
	for i, ref := range info.Documents {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.docName(ref))
	}
	b.WriteByte(']')
	if info.Global {
		b.WriteString(" global")
	}
	if info.Transparent {
		b.WriteString(" transparent")
	}
	if !info.Undoable {
		b.WriteString(" non-undoable")
	}
	if !info.Valid {
		b.WriteString(" invalid")
	}
	return b.String()
}

func (r *Runner) docName(ref history.DocumentRef) string {
	if name, ok := r.names[ref]; ok {
		return name
	}
	return ref.String()
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
