// Command flowdemo hosts two flowkit streams on a main loop: images
// decoded on a background thread with retry and a fallback, and timer
// ticks batched on a worker pool.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/kbukum/flowkit/bootstrap"
	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/scheduler"
	"github.com/kbukum/flowkit/version"
)

const serviceName = "flowdemo"

func main() {
	configFile := pflag.StringP("config", "c", "", "config file (default: discovered config.yml)")
	envFile := pflag.String("env-file", "", ".env file to load")
	showVersion := pflag.BoolP("version", "v", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(context.Background(), *configFile, *envFile, os.Stdout); err != nil {
		logger.Error("flowdemo failed", logger.ErrorFields("run", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, envFile string, out io.Writer) error {
	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	cfg := &DemoConfig{}
	if err := config.Load(serviceName, cfg, opts...); err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	pool, err := app.NewPool("decode-"+uuid.NewString()[:8], cfg.Demo.Workers)
	if err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		return runDemo(ctx, app, pool, out)
	})
}

// runDemo runs the load chain, then the ticker. It blocks on the task
// goroutine while results are printed on the main loop.
func runDemo(ctx context.Context, app *bootstrap.App[*DemoConfig], pool *scheduler.Pool, out io.Writer) error {
	d := app.Cfg.Demo
	log := app.Logger.WithComponent("demo")

	worker, err := app.Scheduler(scheduler.KindNewThread)
	if err != nil {
		return err
	}
	onLoop, err := app.Scheduler(scheduler.KindMain)
	if err != nil {
		return err
	}
	ticker := scheduler.Instrument(pool, pool.Name(), app.SchedulerMetrics)
	traceOpts := []flow.TraceOption{flow.WithParent(ctx), flow.WithStreamMetrics(app.StreamMetrics)}

	l := newLoader(d)
	retry := flow.RetryConfig{
		Times:   d.Retries,
		Backoff: d.Backoff,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn("retrying image load", logger.Fields(
				"attempt", attempt,
				logger.FieldError, err,
				"delay", delay.String(),
			))
		},
	}

	fmt.Fprintf(out, "images:\n")
	shown, err := showImages(ctx, loadChain(l, d.Images, worker, onLoop, retry, traceOpts...), app.Loop, out)
	if err != nil {
		return err
	}
	log.Info("images shown", logger.Fields("count", shown))

	fmt.Fprintf(out, "ticks:\n")
	batches, err := showTicks(ctx, tickChain(d.TickInterval, d.TickBatch, ticker, onLoop, traceOpts...), d.Ticks, app.Loop, out)
	if err != nil {
		return err
	}
	log.Info("ticks shown", logger.Fields("batches", batches))
	return nil
}
