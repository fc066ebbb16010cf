package scheduler

import (
	"runtime"
	"sync"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/validation"
)

// Kind names a built-in scheduler variant.
type Kind string

const (
	KindMain      Kind = "main"
	KindNewThread Kind = "new_thread"
	KindSingle    Kind = "single"
	KindParallel  Kind = "parallel"
)

// Config sizes the process-wide schedulers.
type Config struct {
	// ParallelSize is the worker count of ParallelScheduler. Zero means
	// runtime.NumCPU(); a negative value requests an unbounded pool.
	ParallelSize int `yaml:"parallel_size" mapstructure:"parallel_size" validate:"gte=-1,lte=4096"`
	// MainLoopName names the main loop in logs and metrics.
	MainLoopName string `yaml:"main_loop_name" mapstructure:"main_loop_name"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.ParallelSize == 0 {
		c.ParallelSize = runtime.NumCPU()
	}
	if c.MainLoopName == "" {
		c.MainLoopName = string(KindMain)
	}
}

// Validate checks the config with struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

var registry = struct {
	mu      sync.Mutex
	cfg     Config
	started map[Kind]bool

	mainOnce     sync.Once
	main         *MainLoop
	newThread    *NewThread
	newOnce      sync.Once
	singleOnce   sync.Once
	single       *Pool
	parallelOnce sync.Once
	parallel     *Pool
}{
	started: make(map[Kind]bool),
}

// Configure sets the sizes used by the lazily built singletons. It fails
// once any singleton it affects has been built.
func Configure(cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.started[KindParallel] || registry.started[KindMain] {
		return errors.New(errors.ErrCodeInvalidArgument, "schedulers already initialized").WithOp("scheduler.Configure")
	}
	registry.cfg = cfg
	return nil
}

func currentConfig(kind Kind) Config {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.started[kind] = true
	cfg := registry.cfg
	cfg.ApplyDefaults()
	return cfg
}

// Main returns the process-wide main loop. The host must call Run on it.
func Main() *MainLoop {
	registry.mainOnce.Do(func() {
		registry.main = NewMainLoop(currentConfig(KindMain).MainLoopName)
	})
	return registry.main
}

// NewThreadScheduler returns the process-wide goroutine-per-task scheduler.
func NewThreadScheduler() *NewThread {
	registry.newOnce.Do(func() {
		currentConfig(KindNewThread)
		registry.newThread = &NewThread{}
	})
	return registry.newThread
}

// SingleScheduler returns the process-wide single worker.
func SingleScheduler() *Pool {
	registry.singleOnce.Do(func() {
		currentConfig(KindSingle)
		registry.single = NewSingle(string(KindSingle))
	})
	return registry.single
}

// ParallelScheduler returns the process-wide worker pool.
func ParallelScheduler() *Pool {
	registry.parallelOnce.Do(func() {
		cfg := currentConfig(KindParallel)
		registry.parallel = NewParallel(string(KindParallel), cfg.ParallelSize)
	})
	return registry.parallel
}

// Get returns the built-in scheduler of the given kind.
func Get(kind Kind) (Scheduler, error) {
	switch kind {
	case KindMain:
		return Main(), nil
	case KindNewThread:
		return NewThreadScheduler(), nil
	case KindSingle:
		return SingleScheduler(), nil
	case KindParallel:
		return ParallelScheduler(), nil
	default:
		return nil, errors.InvalidArgument("scheduler.Get", "kind", "unknown scheduler kind "+string(kind))
	}
}
