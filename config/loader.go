package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
)

// FileSystem abstracts the file operations of the loader for tests.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds the config and env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from opts, or searches the
// standard locations for the ones that are missing.
func (r *Resolver) ResolveFiles(serviceName string, opts Options) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(envCandidates(serviceName))
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configCandidates(serviceName string) []string {
	var paths []string
	for _, prefix := range []string{".", "..", "../.."} {
		paths = append(paths,
			fmt.Sprintf("%s/cmd/%s/config.yml", prefix, serviceName),
			fmt.Sprintf("%s/cmd/%s/config.yaml", prefix, serviceName),
		)
	}
	return append(paths, "./config/config.yml", "./config.yml", "./config.yaml")
}

func envCandidates(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, dir := range []string{"./cmd/" + serviceName, "./config", ".", ".."} {
			paths = append(paths, dir+"/"+name)
		}
	}
	return paths
}

// Options holds the loader dependencies and file overrides.
type Options struct {
	FileSystem FileSystem
	ConfigFile string // explicit config file path
	EnvFile    string // explicit .env file path
	EnvPrefix  string // environment variable prefix, without the trailing underscore
}

// Option is a functional option for Load.
type Option func(*Options)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) Option {
	return func(o *Options) { o.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path. Unlike a discovered
// file, an explicit one must exist and parse.
func WithConfigFile(path string) Option {
	return func(o *Options) { o.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(o *Options) { o.EnvFile = path }
}

// WithEnvPrefix sets the environment variable prefix. Defaults to the
// upper-cased service name, so service "flowdemo" reads FLOWDEMO_LOGGING_LEVEL
// into logging.level.
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) { o.EnvPrefix = prefix }
}

// Defaulter is implemented by configs that fill their own zero values.
type Defaulter interface {
	ApplyDefaults()
}

// Validator is implemented by configs that check themselves.
type Validator interface {
	Validate() error
}

// Load reads the YAML config file, the .env file and prefixed environment
// variables of serviceName into cfg, in increasing precedence. If cfg
// implements Defaulter and Validator they are applied afterwards.
func Load(serviceName string, cfg any, opts ...Option) error {
	o := Options{
		FileSystem: RealFileSystem{},
		EnvPrefix:  defaultEnvPrefix(serviceName),
	}
	for _, opt := range opts {
		opt(&o)
	}

	resolver := &Resolver{FileSystem: o.FileSystem}
	files := resolver.ResolveFiles(serviceName, o)
	log := logger.Get("config")

	v := viper.New()
	if files.ConfigFile != "" {
		explicit := files.ConfigFile == o.ConfigFile
		if err := readConfigFile(v, o.FileSystem, files.ConfigFile); err != nil {
			if explicit {
				return err
			}
			log.Warn("skipping config file", logger.ErrorFields("config.Load", err))
		}
	}

	if files.EnvFile != "" && o.FileSystem.Exists(files.EnvFile) {
		if err := o.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("skipping env file", logger.Fields("file", files.EnvFile, logger.FieldError, err))
		}
	}
	bindEnv(v, o.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("decoding config for %s", serviceName)).WithCause(err)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}
	if val, ok := cfg.(Validator); ok {
		if err := val.Validate(); err != nil {
			return err
		}
	}

	log.Debug("config loaded", logger.Fields(
		"service", serviceName,
		"config_file", files.ConfigFile,
		"env_file", files.EnvFile,
	))
	return nil
}

func readConfigFile(v *viper.Viper, fs FileSystem, path string) error {
	if !fs.Exists(path) {
		return errors.ConfigInvalid("config file not found: " + path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.ConfigInvalid("reading config file " + path).WithCause(err)
	}
	return nil
}

func defaultEnvPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
}

// bindEnv sets every PREFIX_* variable on v under each nested key it may
// stand for.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	want := ""
	if prefix != "" {
		want = strings.ToUpper(prefix) + "_"
	}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, want) {
			continue
		}
		key = strings.TrimPrefix(key, want)
		if key == "" {
			continue
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants maps an UPPER_SNAKE variable to the config keys it may
// address. Nesting is ambiguous because keys contain underscores, so every
// split between section and field is produced.
//
//	LOGGING_LEVEL           -> [logging_level logging.level]
//	SCHEDULER_PARALLEL_SIZE -> [scheduler_parallel_size scheduler.parallel_size scheduler.parallel.size scheduler_parallel.size]
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	variants := []string{lower}
	if len(parts) == 1 {
		return variants
	}

	seen := map[string]bool{lower: true}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			variants = append(variants, s)
		}
	}
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "_"))
	}
	add(strings.Join(parts, "."))
	return variants
}
