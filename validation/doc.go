// Package validation validates configuration structs using
// go-playground/validator struct tags.
//
//	type SchedulerConfig struct {
//	    ParallelSize int `mapstructure:"parallel_size" validate:"gte=0,lte=1024"`
//	}
//	if err := validation.Validate(cfg); err != nil {
//	    // err is an *errors.AppError with code CONFIG_INVALID
//	}
package validation
