// Package errors provides the structured error type used across flowkit.
// Errors carry a machine-readable code, the operation that raised them and
// an optional cause, and they cooperate with the standard errors.Is/As
// helpers through Unwrap.
package errors
