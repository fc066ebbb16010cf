// Package bootstrap hosts a flowkit process.
//
// It loads typed configuration, initializes the logger, sizes the
// built-in schedulers, optionally exports traces and metrics over OTLP,
// and manages component lifecycle with startup/shutdown hooks.
//
// # Quick Start
//
//	var cfg DemoConfig
//	if err := config.Load("flowdemo", &cfg); err != nil {
//	    log.Fatal(err)
//	}
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return flow.ForEach(ctx, flow.ObserveOn(src, app.Loop), show)
//	})
//
// RunTask and Run drive the main loop on the calling goroutine, so
// results observed on app.Loop are delivered there.
package bootstrap
