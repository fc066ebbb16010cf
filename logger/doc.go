// Package logger provides structured logging for flowkit using zerolog.
//
// Library packages never configure logging themselves: they ask for a
// component logger with Get and inherit whatever the host installed with
// Init or SetGlobalLogger.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("scheduler")
//	log.Debug("worker started", logger.Fields("scheduler", "single"))
package logger
