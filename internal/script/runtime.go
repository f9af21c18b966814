package script

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undocore/internal/document"
	"github.com/dshills/undocore/internal/logging"
)

// Default limits for the Lua state.
const (
	DefaultTimeout       = 2 * time.Second
	DefaultCallStackSize = 256
)

const documentTypeName = "undocore.document"

// Runtime is a sandboxed Lua state holding loaded scripts.
type Runtime struct {
	mu sync.Mutex
	L  *lua.LState

	timeout time.Duration
	logger  *logging.Logger
	scripts map[string]*Script

	// lastErr keeps the Go error behind the last raised Lua error so callers
	// can still match document errors with errors.Is.
	lastErr error
	closed  bool
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	timeout       time.Duration
	callStackSize int
	logger        *logging.Logger
}

// WithTimeout bounds the duration of every call into Lua. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *runtimeConfig) {
		c.timeout = d
	}
}

// WithCallStackSize sets the Lua call stack size.
func WithCallStackSize(n int) Option {
	return func(c *runtimeConfig) {
		if n > 0 {
			c.callStackSize = n
		}
	}
}

// WithLogger sets the logger receiving print output and load messages.
func WithLogger(l *logging.Logger) Option {
	return func(c *runtimeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a sandboxed runtime.
func New(opts ...Option) *Runtime {
	cfg := runtimeConfig{
		timeout:       DefaultTimeout,
		callStackSize: DefaultCallStackSize,
		logger:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: cfg.callStackSize,
	})
	r := &Runtime{
		L:       L,
		timeout: cfg.timeout,
		logger:  cfg.logger.WithComponent("script"),
		scripts: make(map[string]*Script),
	}
	r.openSafeLibraries()
	r.registerDocumentType()
	return r
}

// openSafeLibraries opens base, table, string and math and strips loaders.
func (r *Runtime) openSafeLibraries() {
	lua.OpenBase(r.L)
	lua.OpenTable(r.L)
	lua.OpenString(r.L)
	lua.OpenMath(r.L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		r.L.SetGlobal(name, lua.LNil)
	}

	r.L.SetGlobal("print", r.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		r.logger.Info("%s", strings.Join(parts, " "))
		return 0
	}))
}

// Load compiles source and registers it under name, replacing any script
// of the same name.
func (r *Runtime) Load(name, source string) (*Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	fn, err := r.L.Load(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	var tbl *lua.LTable
	err = r.call(func() error {
		if err := r.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			return err
		}
		ret := r.L.Get(-1)
		r.L.Pop(1)
		tbl, _ = ret.(*lua.LTable)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if tbl == nil {
		return nil, fmt.Errorf("load %s: %w", name, ErrInvalidScript)
	}

	redo, okRedo := tbl.RawGetString("redo").(*lua.LFunction)
	undo, okUndo := tbl.RawGetString("undo").(*lua.LFunction)
	if !okRedo || !okUndo {
		return nil, fmt.Errorf("load %s: %w", name, ErrInvalidScript)
	}

	s := &Script{runtime: r, name: name, redo: redo, undo: undo}
	r.scripts[name] = s
	r.logger.Debug("loaded script %q", name)
	return s, nil
}

// LoadFile loads a script file. The script is named after the file without
// its extension.
func (r *Runtime) LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.Load(name, string(data))
}

// LoadDir loads every *.lua file in dir, in name order, and returns the
// names loaded. It stops at the first script that fails to load.
func (r *Runtime) LoadDir(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		s, err := r.LoadFile(path)
		if err != nil {
			return names, fmt.Errorf("%s: %w", path, err)
		}
		names = append(names, s.Name())
	}
	r.logger.Info("loaded %d scripts from %s", len(names), dir)
	return names, nil
}

// Lookup returns the script registered under name.
func (r *Runtime) Lookup(name string) (*Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return s, nil
}

// Names returns the registered script names in order.
func (r *Runtime) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.scripts))
}

// Close releases the Lua state.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.L.Close()
	r.closed = true
	return nil
}

// invoke calls fn(doc, args) under the runtime lock.
func (r *Runtime) invoke(fn *lua.LFunction, doc *document.Document, args map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	return r.call(func() error {
		return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, r.newDocument(doc), r.newArgs(args))
	})
}

// call runs fn with the timeout context installed, turning panics into
// errors and restoring the Go error behind a raised Lua error.
func (r *Runtime) call(fn func() error) (err error) {
	r.lastErr = nil
	if r.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.L.SetContext(ctx)
		defer r.L.RemoveContext()

		defer func() {
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
			}
		}()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	if err := fn(); err != nil {
		if r.lastErr != nil {
			return fmt.Errorf("%w (%s)", r.lastErr, firstLine(err.Error()))
		}
		return err
	}
	return nil
}

func (r *Runtime) newArgs(args map[string]string) *lua.LTable {
	tbl := r.L.NewTable()
	for k, v := range args {
		tbl.RawSetString(k, lua.LString(v))
	}
	return tbl
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
