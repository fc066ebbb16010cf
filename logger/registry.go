package logger

import (
	"sync"
)

// registry caches component loggers derived from the global logger.
var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

func (r *loggerRegistry) reset() {
	r.mu.Lock()
	r.loggers = make(map[string]*Logger)
	r.mu.Unlock()
}

// Register stores a named logger in the registry.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// Get retrieves a named logger. If the name is not registered it derives
// one from the global logger tagged with the component name and caches it
// until the global logger changes.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	l = GetGlobalLogger().WithComponent(name)
	Register(name, l)
	return l
}
