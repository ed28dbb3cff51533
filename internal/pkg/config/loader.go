package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcuadros/go-defaults"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Source reports where the effective value of an option came from.
type Source string

const (
	// SourceDefault means the built-in default applied because the option
	// was not set anywhere.
	SourceDefault Source = "default"

	// SourceFile means the option was set in the configuration file.
	SourceFile Source = "file"

	// SourceEnv means an environment variable overrode the option.
	SourceEnv Source = "env"
)

// Sources maps option names to the origin of their effective value.
type Sources map[string]Source

// Loader resolves the agent configuration from a YAML file overlaid with
// JOBBERGATE_AGENT_* environment variables. The result is a read-only
// snapshot: nothing re-reads the file while the daemon runs.
type Loader struct {
	fs        afero.Fs
	path      string
	lookupEnv func(key string) (string, bool)
}

// NewLoader builds a Loader for the given filesystem and config file path.
func NewLoader(fs afero.Fs, path string) *Loader {
	return &Loader{
		fs:        fs,
		path:      path,
		lookupEnv: os.LookupEnv,
	}
}

// Load resolves the configuration snapshot. A missing config file is not an
// error; defaults and environment variables still apply.
func (loader *Loader) Load() (Settings, Sources, error) {
	var settings Settings
	defaults.SetDefaults(&settings)

	sources := Sources{}

	fileKeys, err := loader.readFile(&settings)
	if err != nil {
		return Settings{}, nil, err
	}
	for key := range fileKeys {
		sources[key] = SourceFile
	}

	for _, opt := range options() {
		value, ok := loader.lookupEnv(EnvVarName(opt.name))
		if !ok {
			continue
		}

		if err := opt.set(&settings, value); err != nil {
			return Settings{}, nil, fmt.Errorf("apply %s from environment: %w", opt.name, err)
		}

		sources[opt.name] = SourceEnv
	}

	for _, opt := range options() {
		if _, ok := sources[opt.name]; !ok {
			sources[opt.name] = SourceDefault
		}
	}

	if err := settings.expandPaths(); err != nil {
		return Settings{}, nil, err
	}

	return settings, sources, nil
}

// readFile loads the config file into settings and reports which option keys
// the file actually set.
func (loader *Loader) readFile(settings *Settings) (map[string]struct{}, error) {
	data, err := afero.ReadFile(loader.fs, loader.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if len(data) == 0 {
		return map[string]struct{}{}, nil
	}

	if err := yaml.UnmarshalStrict(data, settings); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal config file keys: %w", err)
	}

	keys := make(map[string]struct{}, len(raw))
	for key := range raw {
		keys[key] = struct{}{}
	}

	return keys, nil
}

// WithEnvLookup overrides environment lookup, for tests.
func (loader *Loader) WithEnvLookup(lookup func(key string) (string, bool)) *Loader {
	loader.lookupEnv = lookup
	return loader
}
