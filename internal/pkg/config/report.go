package config

// OptionValue is the user-facing view of a single configuration option, used
// by the config inspection commands.
type OptionValue struct {
	// Name is the documented option name, e.g. "base-api-url".
	Name string `json:"name"`

	// EnvVar is the environment variable the daemon reads for this option.
	EnvVar string `json:"envVar"`

	// Value is the effective value, redacted for secret options unless the
	// report was built with reveal set.
	Value string `json:"value"`

	// Default is the documented default value, empty when the option has no
	// default.
	Default string `json:"default"`

	// Source reports where the effective value came from.
	Source Source `json:"source"`

	// Set reports whether the option contributes a variable to the daemon
	// environment.
	Set bool `json:"set"`
}

const redactedPlaceholder = "*****"

// Report builds the option table for the given settings snapshot. Secret
// values are masked unless reveal is set; a configured DSN keeps everything
// but its password visible.
func (settings Settings) Report(sources Sources, reveal bool) []OptionValue {
	defaultSettings := Default()

	report := make([]OptionValue, 0, len(options()))
	for _, opt := range options() {
		value, set := opt.get(&settings)
		defaultValue, _ := opt.get(&defaultSettings)

		if opt.secret && set && !reveal {
			value = redactValue(opt.name, value)
		}

		report = append(report, OptionValue{
			Name:    opt.name,
			EnvVar:  EnvVarName(opt.name),
			Value:   value,
			Default: defaultValue,
			Source:  sources[opt.name],
			Set:     set,
		})
	}

	return report
}

func redactValue(optionName string, value string) string {
	if optionName == "influx-dsn" {
		if dsn, err := ParseDSN(value); err == nil {
			return dsn.Redacted()
		}
	}

	return redactedPlaceholder
}
