package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBuildsFile     = "io_builds.yml"
	DefaultPollRetryCount = 240
	DefaultPollInterval   = 5 * time.Second
	DefaultBranch         = "master"
	DefaultRepositoryHost = "github.com"
	DefaultCoreAPIURL     = "https://gaapiserver.apps.okd4v2.prod.rapyuta.io"
	DefaultCatalogAPIURL  = "https://gacatalog.apps.okd4v2.prod.rapyuta.io"
	branchRefPrefix       = "refs/heads/"
)

// ConfigurationError reports a missing or malformed configuration value.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Key, e.Reason)
}

// ActionConfig captures the settings of a single io-builds run. It is loaded
// once from the environment and passed explicitly to every component.
type ActionConfig struct {
	AuthToken      string        `mapstructure:"auth_token"`
	PollRetryCount int           `mapstructure:"build_poll_retry_count"`
	PollInterval   time.Duration `mapstructure:"build_poll_interval"`
	BuildsFile     string        `mapstructure:"builds_file"`
	Repository     string        `mapstructure:"repository"`
	Ref            string        `mapstructure:"ref"`
	RepositoryHost string        `mapstructure:"repository_host"`
	CoreAPIURL     string        `mapstructure:"core_api_url"`
	CatalogAPIURL  string        `mapstructure:"catalog_api_url"`
	Trace          bool          `mapstructure:"trace"`
}

// actionEnv lists, per key, the environment variables consulted in order.
// The INPUT_ and GITHUB_ names are what GitHub Actions sets for `with:` inputs
// and the default workflow context.
var actionEnv = map[string][]string{
	"auth_token":             {"INPUT_AUTH_TOKEN", "AUTH_TOKEN"},
	"build_poll_retry_count": {"INPUT_BUILD_POLL_RETRY_COUNT", "BUILD_POLL_RETRY_COUNT"},
	"build_poll_interval":    {"INPUT_BUILD_POLL_INTERVAL", "BUILD_POLL_INTERVAL"},
	"builds_file":            {"INPUT_BUILDS_FILE", "BUILDS_FILE", "IO_BUILD_FILE"},
	"repository":             {"GITHUB_REPOSITORY", "REPOSITORY"},
	"ref":                    {"GITHUB_REF", "REF"},
	"repository_host":        {"REPOSITORY_HOST"},
	"core_api_url":           {"IO_CORE_API_URL"},
	"catalog_api_url":        {"IO_CATALOG_API_URL"},
	"trace":                  {"IO_BUILDS_TRACE"},
}

// LoadAction loads the io-builds configuration from defaults and env vars.
func LoadAction() (ActionConfig, error) {
	v := viper.New()
	for key, names := range actionEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return ActionConfig{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("build_poll_retry_count", DefaultPollRetryCount)
	v.SetDefault("build_poll_interval", DefaultPollInterval)
	v.SetDefault("builds_file", DefaultBuildsFile)
	v.SetDefault("repository_host", DefaultRepositoryHost)
	v.SetDefault("core_api_url", DefaultCoreAPIURL)
	v.SetDefault("catalog_api_url", DefaultCatalogAPIURL)
	v.SetDefault("trace", false)

	var cfg ActionConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ActionConfig{}, &ConfigurationError{Key: "environment", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return ActionConfig{}, err
	}
	return cfg, nil
}

// Validate checks that required values are present and numeric values are sane.
func (c ActionConfig) Validate() error {
	if strings.TrimSpace(c.AuthToken) == "" {
		return &ConfigurationError{Key: actionEnv["auth_token"][0], Reason: "env not set"}
	}
	if strings.TrimSpace(c.Repository) == "" {
		return &ConfigurationError{Key: actionEnv["repository"][0], Reason: "env not set"}
	}
	if c.PollRetryCount <= 0 {
		return &ConfigurationError{Key: actionEnv["build_poll_retry_count"][0], Reason: "must be positive"}
	}
	if c.PollInterval <= 0 {
		return &ConfigurationError{Key: actionEnv["build_poll_interval"][0], Reason: "must be positive"}
	}
	return nil
}

// Branch returns the branch named by Ref, falling back to master.
func (c ActionConfig) Branch() string {
	if c.Ref == "" {
		return DefaultBranch
	}
	return strings.TrimPrefix(c.Ref, branchRefPrefix)
}

// DefaultRepository is the repository used by manifest entries that do not
// name one: the invoking repository pinned to the current branch.
func (c ActionConfig) DefaultRepository() string {
	host := strings.Trim(c.RepositoryHost, "/")
	if host == "" {
		host = DefaultRepositoryHost
	}
	return fmt.Sprintf("https://%s/%s#%s", host, c.Repository, c.Branch())
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// StubConfig captures runtime settings for the local build service stub.
type StubConfig struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	AuthToken     string `mapstructure:"auth_token"`
	DatabaseURL   string `mapstructure:"database_url"`
	Projects      string `mapstructure:"projects"`
	CompleteAfter int    `mapstructure:"complete_after"`
	FailureMarker string `mapstructure:"failure_marker"`
}

// LoadStub loads stub configuration from defaults, files, and env vars.
func LoadStub() (StubConfig, error) {
	v := viper.New()
	v.SetConfigName("buildstub")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("BUILDSTUB")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8086")
	v.SetDefault("auth_token", "")
	v.SetDefault("database_url", "")
	v.SetDefault("projects", "default")
	v.SetDefault("complete_after", 2)
	v.SetDefault("failure_marker", "fail")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return StubConfig{}, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg StubConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return StubConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// ProjectNames splits the comma separated Projects setting.
func (c StubConfig) ProjectNames() []string {
	var names []string
	for _, name := range strings.Split(c.Projects, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
