// Package extconfig loads the process-wide knobs that govern extension
// discovery and adaptive dispatch from the environment, the way
// pkg/client's own Env is loaded via sethvargo/go-envconfig.
package extconfig

import (
	"context"

	"github.com/sethvargo/go-envconfig"

	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/threadpool"
)

// Env is the environment-sourced configuration for the extension runtime:
// which loading strategies run, where extra descriptor directories live,
// and the defaults threadpool.ParamsFromURL falls back to when a URL
// carries no explicit parameter.
type Env struct {
	// ExtraDescriptorDir, if set, is registered as an additional descriptor
	// search root: under every loading strategy's prefix it is read after
	// the module's embedded builtin set, for descriptor files supplied
	// outside the compiled binary.
	ExtraDescriptorDir string `env:"GOEXT_DESCRIPTOR_DIR,default="`

	// DisableLegacyPrefix turns off the META-INF/dubbo/ fallback lookup,
	// for deployments that only ever wrote META-INF/goext descriptors.
	DisableLegacyPrefix bool `env:"GOEXT_DISABLE_LEGACY_PREFIX,default=false"`

	// DefaultThreadName seeds threadpool.Params.ThreadName when a URL
	// supplies no "threadname" parameter.
	DefaultThreadName string `env:"GOEXT_THREAD_NAME,default=goext"`

	// DefaultThreads seeds threadpool.Params.Threads when a URL supplies
	// no "threads" parameter.
	DefaultThreads int `env:"GOEXT_THREADS,default=200"`

	// DefaultQueues seeds threadpool.Params.Queues when a URL supplies no
	// "queues" parameter.
	DefaultQueues int `env:"GOEXT_QUEUES,default=0"`

	LogLevel string `env:"GOEXT_LOG_LEVEL,default=info"`
}

type envKey struct{}

// Load reads Env from the process environment via ctx's lookuper (the
// real OS environment unless overridden by envconfig.WithLookuper, used
// by tests).
func Load(ctx context.Context) (Env, error) {
	var env Env
	if err := envconfig.Process(ctx, &env); err != nil {
		return env, err
	}
	return env, nil
}

// WithEnv stashes env on ctx for later retrieval via GetEnv.
func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// GetEnv retrieves an Env previously stored via WithEnv, or the zero
// value if none was stored.
func GetEnv(ctx context.Context) Env {
	env, _ := ctx.Value(envKey{}).(Env)
	return env
}

// Apply drives the process-wide loader and executor-factory setters from
// env: the "user-supplied extension directories and strategy overrides
// registered through a process-wide setter" §6 calls out, plus the
// executor defaults a bare URL falls back to. Call once at process start,
// before any Registry's first use, the same way main wires envconfig.Env
// into the teacher's client package before any command runs.
func Apply(env Env) {
	if env.ExtraDescriptorDir != "" {
		extension.RegisterDescriptorDir(env.ExtraDescriptorDir)
	}
	extension.SetLegacyPrefixEnabled(!env.DisableLegacyPrefix)
	threadpool.SetDefaultParams(threadpool.Params{
		ThreadName: env.DefaultThreadName,
		Threads:    env.DefaultThreads,
		Queues:     env.DefaultQueues,
	})
}
