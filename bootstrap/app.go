package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/flowkit/component"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/scheduler"
	"github.com/kbukum/flowkit/version"
)

const meterName = "github.com/kbukum/flowkit"

// App hosts a flowkit process: typed config, logger, the main loop,
// lifecycle-managed schedulers and optional OpenTelemetry export.
// The type parameter C is the config type. Any struct embedding
// config.ServiceConfig satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return flow.ForEach(ctx, flow.ObserveOn(src, app.Loop), show)
//	})
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Loop       *scheduler.MainLoop
	Summary    *Summary

	// Set during startup; nil until then or when metrics cannot be built.
	SchedulerMetrics *observability.SchedulerMetrics
	StreamMetrics    *observability.StreamMetrics

	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	shutdowns []func(context.Context) error
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, initializes the logger and
// sizes the process-wide schedulers.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
	}
	if app.Version == "" {
		app.Version = version.Get().Short()
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	// Singletons built earlier in the process keep their sizes.
	if err := scheduler.Configure(base.Scheduler); err != nil {
		app.Logger.Warn("Scheduler config not applied", logger.ErrorFields("scheduler.Configure", err))
	}

	if o.loop != nil {
		app.Loop = o.loop
	} else {
		app.Loop = scheduler.Main()
	}

	app.Summary = NewSummary(base.Name, app.Version)
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback to run during the configure phase.
// Use this to build streams after schedulers and telemetry are up.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Scheduler returns the built-in scheduler of the given kind. KindMain
// resolves to the app's loop. Once startup has built metrics the result
// is instrumented under the kind's name.
func (a *App[C]) Scheduler(kind scheduler.Kind) (scheduler.Scheduler, error) {
	var s scheduler.Scheduler
	if kind == scheduler.KindMain {
		s = a.Loop
	} else {
		var err error
		if s, err = scheduler.Get(kind); err != nil {
			return nil, err
		}
	}
	return scheduler.Instrument(s, string(kind), a.SchedulerMetrics), nil
}

// NewPool creates a worker pool owned by the app. It is stopped with the
// other components on shutdown.
func (a *App[C]) NewPool(name string, size int) (*scheduler.Pool, error) {
	p := scheduler.NewParallel(name, size)
	if err := a.Components.Register(p); err != nil {
		_ = p.Stop(context.Background())
		return nil, err
	}
	return p, nil
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run drives the main loop on the calling goroutine until a shutdown
// signal arrives or ctx is done, then shuts down gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.Logger.Info("Application ready, main loop running", logger.Fields(logger.FieldScheduler, a.Loop.Name()))
	_ = a.Loop.Run(runCtx)
	a.Logger.Info("Main loop stopped, shutting down")

	return a.stop()
}

// RunTask executes a finite task with the full bootstrap lifecycle.
// The task runs on its own goroutine while the calling goroutine drives
// the main loop, so streams observed on a.Loop deliver here. The loop
// stops when the task returns; tasks still queued at that point are run
// before shutdown. SIGINT and SIGTERM cancel the task context.
//
// Example:
//
//	app, _ := bootstrap.NewApp(&cfg)
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return processData(ctx)
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancelTask := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancelTask()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	errCh := make(chan error, 1)
	go func() {
		defer stopLoop()
		errCh <- runGuarded(taskCtx, task)
	}()

	if err := a.Loop.Run(loopCtx); err != nil && loopCtx.Err() == nil {
		// The loop is owned elsewhere; wait for the task without it.
		a.Logger.Warn("Main loop not driven by RunTask", logger.ErrorFields("loop.Run", err))
		<-loopCtx.Done()
	}
	taskErr := <-errCh
	a.Loop.RunPending()

	if taskCtx.Err() != nil && ctx.Err() == nil {
		a.Logger.Info("Received signal, task canceled")
	}

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

func runGuarded(ctx context.Context, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// startup performs the common initialization sequence shared by Run and RunTask.
func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()

	fields := version.Get().Fields()
	fields["name"] = a.Name
	fields["app_version"] = a.Version
	a.Logger.Info("Starting application", fields)

	if err := a.initTelemetry(ctx); err != nil {
		return fmt.Errorf("telemetry init failed: %w", err)
	}
	a.initMetrics()

	if err := a.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()

	return nil
}

// initTelemetry installs the global OTLP tracer and meter providers when
// telemetry is enabled.
func (a *App[C]) initTelemetry(ctx context.Context) error {
	base := a.Cfg.GetServiceConfig()
	if !base.Telemetry.Enabled {
		return nil
	}

	tc := base.TracerConfig()
	tc.ServiceVersion = a.Version
	tp, err := observability.InitTracer(ctx, tc)
	if err != nil {
		return err
	}
	a.shutdowns = append(a.shutdowns, tp.Shutdown)

	mc := base.MeterConfig()
	mc.ServiceVersion = a.Version
	mp, err := observability.InitMeter(ctx, mc)
	if err != nil {
		return err
	}
	a.shutdowns = append(a.shutdowns, mp.Shutdown)

	a.Summary.TrackTelemetry(tc.Endpoint, tc.SampleRate)
	return nil
}

// initMetrics builds instruments on the global meter. Without an
// installed provider they are no-ops.
func (a *App[C]) initMetrics() {
	meter := observability.Meter(meterName)

	sm, err := observability.NewSchedulerMetrics(meter)
	if err != nil {
		a.Logger.Warn("Scheduler metrics disabled", logger.ErrorFields("metrics", err))
	} else {
		a.SchedulerMetrics = sm
	}

	st, err := observability.NewStreamMetrics(meter)
	if err != nil {
		a.Logger.Warn("Stream metrics disabled", logger.ErrorFields("metrics", err))
	} else {
		a.StreamMetrics = st
	}
}

// initialize starts all registered components (Phase 1).
func (a *App[C]) initialize(ctx context.Context) error {
	a.Logger.Info("Phase 1: Starting components")

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}

	a.Logger.Info("Phase 1: All components started")
	return nil
}

// DisplaySummary prints the startup summary with live component health.
func (a *App[C]) DisplaySummary() {
	a.Summary.DisplaySummary(a.Components)
}

// configure runs registered configuration callbacks (Phase 2).
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) == 0 {
		return nil
	}

	a.Logger.Info("Phase 2: Running configuration callbacks", map[string]interface{}{
		"count": len(a.onConfigure),
	})

	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}

	a.Logger.Info("Phase 2: Configuration complete")
	return nil
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown performs graceful shutdown. Use when managing your own lifecycle.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs OnStop hooks, stops components in reverse order and flushes
// telemetry, all within the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownErr = err
	}

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownErr = err
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			a.Logger.Error("Telemetry shutdown error", map[string]interface{}{
				"error": err.Error(),
			})
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	}
	a.shutdowns = nil

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}
