// Package config loads flowkit host configuration.
//
// It uses Viper to read a YAML file and environment variables, and
// godotenv to load an optional .env file first. Environment variables are
// prefixed with the upper-cased service name and use underscores for
// nesting (e.g. FLOWDEMO_SCHEDULER_PARALLEL_SIZE for scheduler.parallel_size).
//
// # Usage
//
//	var cfg DemoConfig
//	if err := config.Load("flowdemo", &cfg); err != nil {
//	    return err
//	}
package config
