package graft

import (
	"sync"

	"go.uber.org/zap"

	"github.com/grafthook/graft/internal/arch"
	"github.com/grafthook/graft/internal/image"
	"github.com/grafthook/graft/internal/mem"
)

// ExecAllocator provides the executable memory that trampolines live in.
// Allocate and Free may only be called inside a BeginMutate/EndMutate
// window.
type ExecAllocator interface {
	BeginMutate() error
	EndMutate() error
	Allocate(size int) ([]byte, error)
	Free(buf []byte)
}

// Engine tracks the active hooks of this process. All mutations are
// serialized by a single lock; concurrent installs on the same target race
// exactly one winner. The zero value is not usable, construct engines with
// NewEngine or use the package-level functions which share a default
// instance.
type Engine struct {
	mu    sync.Mutex
	hooks map[uintptr]*Hook

	arena   ExecAllocator
	rel     arch.Relocator
	catalog image.Catalog
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAllocator replaces the executable-memory allocator.
func WithAllocator(a ExecAllocator) Option {
	return func(e *Engine) { e.arena = a }
}

// WithCatalog replaces the loaded-image catalog.
func WithCatalog(c image.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithRelocator replaces the instruction-set backend.
func WithRelocator(r arch.Relocator) Option {
	return func(e *Engine) { e.rel = r }
}

// WithLogger gives the engine its own logger instead of the package one.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine with its own hook registry and trampoline
// arena. Tests construct private engines for isolation.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		hooks:   make(map[uintptr]*Hook),
		arena:   mem.NewArena(),
		rel:     arch.Current(),
		catalog: image.System(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var (
	defaultEngine *Engine
	defaultOnce   sync.Once
)

// Default returns the process-wide engine, constructing it on first use.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = NewEngine()
	})
	return defaultEngine
}

func (e *Engine) log() *zap.Logger {
	if e.logger != nil {
		return e.logger
	}
	return L()
}
