// SPDX-License-Identifier: GPL-3.0-or-later

package scrapecfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const (
	// EnvVar names the environment variable pointing at the config file.
	EnvVar = "SCRAPECONFIG"
	// DefaultPath is used when EnvVar is not set.
	DefaultPath = "/etc/scrapeconfig.yml"
)

type (
	Config struct {
		Global         GlobalConfig  `yaml:"global"`
		SSH            SSHConfig     `yaml:"ssh"`
		Local          []LocalConfig `yaml:"local"`
		Script         string        `yaml:"script"`
		ReloadInterval int           `yaml:"reload_interval"`
	}

	GlobalConfig struct {
		TTL                  int                  `yaml:"ttl"`
		BackgroundResilience int                  `yaml:"background_resilience"`
		LongTermResilience   int                  `yaml:"long_term_resilience"`
		Prefix               string               `yaml:"prefix"`
		Histograms           map[string][]float64 `yaml:"histograms"`
		Format               []FormatEntry        `yaml:"format"`
	}

	SSHConfig struct {
		Connection   ConnectionConfig             `yaml:"connection"`
		Environments map[string]EnvironmentConfig `yaml:"environments"`
	}

	ConnectionConfig struct {
		File           string `yaml:"file"`
		User           string `yaml:"user"`
		Password       string `yaml:"password"`
		PKey           string `yaml:"pkey"`
		PKeyPassphrase string `yaml:"passphrase"`
		ConnectTimeout int    `yaml:"connect_timeout"`
		ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	}

	EnvironmentConfig struct {
		Hosts      HostList         `yaml:"hosts"`
		Connection ConnectionConfig `yaml:"connection"`
	}

	LocalConfig struct {
		Path        string `yaml:"path"`
		Environment string `yaml:"environment"`
	}
)

// HostList accepts both a single scalar and a list of hosts.
type HostList []string

func (h *HostList) UnmarshalYAML(unmarshal func(any) error) error {
	var one string
	if err := unmarshal(&one); err == nil {
		*h = HostList{one}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*h = many
	return nil
}

func defaultConfig() Config {
	return Config{
		Global: GlobalConfig{
			TTL:                  60,
			BackgroundResilience: 1,
			LongTermResilience:   10,
		},
		SSH: SSHConfig{
			Connection: defaultConnection(),
		},
	}
}

func defaultConnection() ConnectionConfig {
	return ConnectionConfig{
		ConnectTimeout: 30,
		ReadTimeoutMS:  60000,
	}
}

// Merge returns c with every zero field replaced by the corresponding
// field of base.
func (c ConnectionConfig) Merge(base ConnectionConfig) ConnectionConfig {
	if c.File == "" {
		c.File = base.File
	}
	if c.User == "" {
		c.User = base.User
	}
	if c.Password == "" {
		c.Password = base.Password
	}
	if c.PKey == "" {
		c.PKey = base.PKey
	}
	if c.PKeyPassphrase == "" {
		c.PKeyPassphrase = base.PKeyPassphrase
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = base.ConnectTimeout
	}
	if c.ReadTimeoutMS == 0 {
		c.ReadTimeoutMS = base.ReadTimeoutMS
	}
	return c
}

// StaticConnection is the fully resolved connection defaults of the static
// configuration, used as the fallback for dynamic inventory documents.
func (c *Config) StaticConnection() ConnectionConfig {
	return c.SSH.Connection.Merge(defaultConnection())
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// LoadFromEnv loads the file named by SCRAPECONFIG, or the default path.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// Parse unmarshals and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Global.TTL <= 0 {
		return errBadTTL
	}
	if c.Global.BackgroundResilience < 0 || c.Global.LongTermResilience < 0 {
		return errBadResilience
	}
	if c.Global.Prefix != "" && !rePrefix.MatchString(c.Global.Prefix) {
		return fmt.Errorf("%w: %q", errBadPrefix, c.Global.Prefix)
	}
	return nil
}
