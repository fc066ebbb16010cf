// Package component defines the lifecycle contract for resources that own
// goroutines, such as caller-scoped schedulers.
//
// Owned resources implement Component and are registered with a Registry,
// which starts them in registration order and stops them in reverse.
package component
