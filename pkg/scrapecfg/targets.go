// SPDX-License-Identifier: GPL-3.0-or-later

package scrapecfg

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v2"
)

// TargetConfig is one resolved scrape target: a (host, file) pair reached
// over SSH, or a local file.
type TargetConfig struct {
	ID          string
	Environment string
	Host        string
	File        string
	Local       bool
	Connection  ConnectionConfig
}

// SSHTargetID is the identity scrapers are reconciled by.
func SSHTargetID(host, file string) string {
	return fmt.Sprintf("ssh://%s/%s", host, file)
}

func LocalTargetID(path string) string {
	return fmt.Sprintf("file://%s", path)
}

// Targets flattens the static configuration into the initial target set.
func (c *Config) Targets() ([]TargetConfig, error) {
	targets, err := sshTargets(c.SSH, defaultConnection())
	if err != nil {
		return nil, err
	}
	for _, l := range c.Local {
		if l.Path == "" {
			return nil, errTargetFile
		}
		if l.Environment == "" {
			return nil, fmt.Errorf("%w: %q", errTargetEnv, l.Path)
		}
		targets = append(targets, TargetConfig{
			ID:          LocalTargetID(l.Path),
			Environment: l.Environment,
			Host:        l.Path,
			File:        l.Path,
			Local:       true,
		})
	}
	return targets, nil
}

// ParseInventory parses a dynamic inventory document. Its structure is the
// ssh subtree; connection defaults fall back to the static ones.
func ParseInventory(data []byte, static ConnectionConfig) ([]TargetConfig, error) {
	var ssh SSHConfig
	if err := yaml.Unmarshal(data, &ssh); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}
	return sshTargets(ssh, static)
}

func sshTargets(ssh SSHConfig, base ConnectionConfig) ([]TargetConfig, error) {
	defaults := ssh.Connection.Merge(base)

	envs := make([]string, 0, len(ssh.Environments))
	for name := range ssh.Environments {
		envs = append(envs, name)
	}
	sort.Strings(envs)

	var targets []TargetConfig
	for _, env := range envs {
		ec := ssh.Environments[env]
		conn := ec.Connection.Merge(defaults)
		if conn.File == "" {
			return nil, fmt.Errorf("%w: environment %q", errTargetFile, env)
		}
		if conn.User == "" {
			return nil, fmt.Errorf("%w: environment %q", errTargetUser, env)
		}
		for _, host := range ec.Hosts {
			targets = append(targets, TargetConfig{
				ID:          SSHTargetID(host, conn.File),
				Environment: env,
				Host:        host,
				File:        conn.File,
				Connection:  conn,
			})
		}
	}
	return targets, nil
}
