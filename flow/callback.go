package flow

// Consumer receives one value.
type Consumer[T any] func(T)

// Function maps a value, reporting failure with an error.
type Function[T, R any] func(T) (R, error)

// Predicate tests a value, reporting failure with an error.
type Predicate[T any] func(T) (bool, error)

// Action runs a side effect with no input.
type Action func()
