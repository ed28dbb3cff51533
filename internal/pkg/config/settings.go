package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/iancoleman/strcase"
	"github.com/mcuadros/go-defaults"
	"github.com/mitchellh/go-homedir"
)

// EnvPrefix namespaces every environment variable consumed by the agent
// daemon and by the wrapper itself.
const EnvPrefix = "JOBBERGATE_AGENT_"

// Settings is the full configuration surface of the agent daemon. Every
// option has a documented default and is read exactly once per process
// start; a change on disk takes effect at the next start or restart.
type Settings struct {
	// BaseAPIURL is the Jobbergate API the agent polls for pending job
	// submissions.
	BaseAPIURL string `json:"base-api-url" default:"https://apis.vantagecompute.ai"`

	// OIDCDomain, OIDCClientID and OIDCClientSecret identify the agent
	// against the identity provider. The protocol itself is implemented by
	// the agent, not by this wrapper.
	OIDCDomain       string `json:"oidc-domain" default:"auth.vantagecompute.ai"`
	OIDCClientID     string `json:"oidc-client-id,omitempty"`
	OIDCClientSecret string `json:"oidc-client-secret,omitempty"`

	// TaskJobsIntervalSeconds is the polling interval for pending jobs.
	TaskJobsIntervalSeconds int `json:"task-jobs-interval-seconds" default:"30"`

	// TaskSelfUpdateIntervalSeconds is the polling interval for the agent's
	// self-update check.
	TaskSelfUpdateIntervalSeconds int `json:"task-self-update-interval-seconds" default:"30"`

	// SbatchPath and ScontrolPath locate the Slurm executables the agent
	// shells out to.
	SbatchPath   string `json:"sbatch-path" default:"/usr/bin/sbatch"`
	ScontrolPath string `json:"scontrol-path" default:"/usr/bin/scontrol"`

	// CacheDir is the agent's working directory for downloaded job scripts.
	CacheDir string `json:"cache-dir" default:"~/.cache/jobbergate-agent"`

	// SlurmUserMapper selects the strategy used to map API identities to
	// local Slurm users. Empty means the agent's built-in default.
	SlurmUserMapper string `json:"slurm-user-mapper,omitempty"`

	// SingleUserSubmitter forces every job to be submitted as this user.
	SingleUserSubmitter string `json:"single-user-submitter,omitempty"`

	// WriteSubmissionFiles makes the agent keep rendered submission files
	// next to the job script instead of discarding them.
	WriteSubmissionFiles bool `json:"write-submission-files,omitempty"`

	// InfluxDSN enables the optional metrics sink when set. The remaining
	// Influx options are only meaningful when a DSN is configured.
	InfluxDSN       string   `json:"influx-dsn,omitempty"`
	InfluxPoolSize  int      `json:"influx-pool-size" default:"10"`
	InfluxSSL       bool     `json:"influx-ssl,omitempty"`
	InfluxVerifySSL bool     `json:"influx-verify-ssl,omitempty"`
	InfluxTimeout   Duration `json:"influx-timeout,omitempty"`
	InfluxUDPPort   int      `json:"influx-udp-port,omitempty"`
	InfluxCertPath  string   `json:"influx-cert-path,omitempty"`
}

var (
	// ErrIntervalNotPositive indicates a polling interval is zero or negative.
	ErrIntervalNotPositive = errors.New("task interval must be positive")

	// ErrInfluxCertPathRequired indicates influx-ssl is enabled without a
	// certificate path.
	ErrInfluxCertPathRequired = errors.New("influx-ssl requires influx-cert-path")

	// ErrInfluxPoolSizeNotPositive indicates the metrics sink pool size is
	// zero or negative.
	ErrInfluxPoolSizeNotPositive = errors.New("influx-pool-size must be positive")
)

// Default returns a Settings value with every option at its documented
// default.
func Default() Settings {
	var settings Settings
	defaults.SetDefaults(&settings)
	return settings
}

// Validate checks the jointly-valid option combinations before the daemon is
// launched. A violation surfaces as a startup failure, never mid-flight.
func (settings Settings) Validate() error {
	if settings.TaskJobsIntervalSeconds <= 0 {
		return fmt.Errorf("%w: task-jobs-interval-seconds is %d", ErrIntervalNotPositive, settings.TaskJobsIntervalSeconds)
	}

	if settings.TaskSelfUpdateIntervalSeconds <= 0 {
		return fmt.Errorf("%w: task-self-update-interval-seconds is %d", ErrIntervalNotPositive, settings.TaskSelfUpdateIntervalSeconds)
	}

	if settings.InfluxSSL && settings.InfluxCertPath == "" {
		return ErrInfluxCertPathRequired
	}

	if settings.InfluxDSN != "" {
		if _, err := ParseDSN(settings.InfluxDSN); err != nil {
			return fmt.Errorf("parse influx-dsn: %w", err)
		}

		if settings.InfluxPoolSize <= 0 {
			return fmt.Errorf("%w: influx-pool-size is %d", ErrInfluxPoolSizeNotPositive, settings.InfluxPoolSize)
		}
	}

	return nil
}

// EnvVarName maps an option name to the environment variable consumed by the
// agent daemon, e.g. "base-api-url" becomes "JOBBERGATE_AGENT_BASE_API_URL".
func EnvVarName(optionName string) string {
	return EnvPrefix + strcase.ToScreamingSnake(optionName)
}

// option describes a single named configuration value: how to read it as a
// string, how to set it from a string, and whether it must be redacted in
// user-facing output.
type option struct {
	name   string
	secret bool
	get    func(settings *Settings) (value string, isSet bool)
	set    func(settings *Settings, value string) error
}

func stringOption(name string, field func(settings *Settings) *string, secret bool) option {
	return option{
		name:   name,
		secret: secret,
		get: func(settings *Settings) (string, bool) {
			value := *field(settings)
			return value, value != ""
		},
		set: func(settings *Settings, value string) error {
			*field(settings) = value
			return nil
		},
	}
}

func intOption(name string, field func(settings *Settings) *int, emitZero bool) option {
	return option{
		name: name,
		get: func(settings *Settings) (string, bool) {
			value := *field(settings)
			if value == 0 && !emitZero {
				return "", false
			}
			return strconv.Itoa(value), true
		},
		set: func(settings *Settings, value string) error {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*field(settings) = parsed
			return nil
		},
	}
}

func boolOption(name string, field func(settings *Settings) *bool) option {
	return option{
		name: name,
		get: func(settings *Settings) (string, bool) {
			return strconv.FormatBool(*field(settings)), true
		},
		set: func(settings *Settings, value string) error {
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*field(settings) = parsed
			return nil
		},
	}
}

func durationOption(name string, field func(settings *Settings) *Duration) option {
	return option{
		name: name,
		get: func(settings *Settings) (string, bool) {
			value := *field(settings)
			if value <= 0 {
				return "", false
			}
			return value.String(), true
		},
		set: func(settings *Settings, value string) error {
			parsed, err := ParseDuration(value)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*field(settings) = parsed
			return nil
		},
	}
}

// options lists every configuration option in documentation order. The same
// table drives environment overlays, daemon environment rendering, and the
// config inspection commands.
func options() []option {
	return []option{
		stringOption("base-api-url", func(s *Settings) *string { return &s.BaseAPIURL }, false),
		stringOption("oidc-domain", func(s *Settings) *string { return &s.OIDCDomain }, false),
		stringOption("oidc-client-id", func(s *Settings) *string { return &s.OIDCClientID }, false),
		stringOption("oidc-client-secret", func(s *Settings) *string { return &s.OIDCClientSecret }, true),
		intOption("task-jobs-interval-seconds", func(s *Settings) *int { return &s.TaskJobsIntervalSeconds }, true),
		intOption("task-self-update-interval-seconds", func(s *Settings) *int { return &s.TaskSelfUpdateIntervalSeconds }, true),
		stringOption("sbatch-path", func(s *Settings) *string { return &s.SbatchPath }, false),
		stringOption("scontrol-path", func(s *Settings) *string { return &s.ScontrolPath }, false),
		stringOption("cache-dir", func(s *Settings) *string { return &s.CacheDir }, false),
		stringOption("slurm-user-mapper", func(s *Settings) *string { return &s.SlurmUserMapper }, false),
		stringOption("single-user-submitter", func(s *Settings) *string { return &s.SingleUserSubmitter }, false),
		boolOption("write-submission-files", func(s *Settings) *bool { return &s.WriteSubmissionFiles }),
		stringOption("influx-dsn", func(s *Settings) *string { return &s.InfluxDSN }, true),
		intOption("influx-pool-size", func(s *Settings) *int { return &s.InfluxPoolSize }, true),
		boolOption("influx-ssl", func(s *Settings) *bool { return &s.InfluxSSL }),
		boolOption("influx-verify-ssl", func(s *Settings) *bool { return &s.InfluxVerifySSL }),
		durationOption("influx-timeout", func(s *Settings) *Duration { return &s.InfluxTimeout }),
		intOption("influx-udp-port", func(s *Settings) *int { return &s.InfluxUDPPort }, false),
		stringOption("influx-cert-path", func(s *Settings) *string { return &s.InfluxCertPath }, false),
	}
}

// expandPaths expands "~" in the path-valued options. Called once at load
// time so the daemon always receives absolute paths.
func (settings *Settings) expandPaths() error {
	for _, target := range []*string{&settings.CacheDir, &settings.InfluxCertPath, &settings.SbatchPath, &settings.ScontrolPath} {
		if *target == "" {
			continue
		}

		expanded, err := homedir.Expand(*target)
		if err != nil {
			return fmt.Errorf("expand path %s: %w", *target, err)
		}

		*target = expanded
	}

	return nil
}
