/*
   Copyright layoutdist authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package repo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tuf-in-toto/layoutdist/metadata"
	"sigs.k8s.io/yaml"
)

const ConfigFilename = "repository.yaml"

// Config describes the repository to generate: signing thresholds and
// expiry windows per role, the target files to publish, and optionally a
// demo in-toto layout plus a client version constraint.
type Config struct {
	ExpiryDays    map[string]int `json:"expiryDays,omitempty"`
	Thresholds    map[string]int `json:"thresholds,omitempty"`
	ExtraRootKeys int            `json:"extraRootKeys,omitempty"`
	Targets       []TargetConfig `json:"targets,omitempty"`
	Layout        *LayoutConfig  `json:"layout,omitempty"`
	// VersionConstraints, if set, is published as the version-constraints
	// target (a semver range the client checks itself against).
	VersionConstraints string `json:"versionConstraints,omitempty"`
}

// TargetConfig publishes the file at Source under the target path Path.
type TargetConfig struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

// LayoutConfig emits a demo in-toto layout target signed by a generated
// functionary key, plus the functionary's public key as a second target.
type LayoutConfig struct {
	Path        string `json:"path"`
	Functionary string `json:"functionary"`
}

// DefaultConfig mirrors the canonical example repository: a long-lived root,
// a short-lived targets role, single-key thresholds, and a root.layout
// signed by the functionary "alice".
func DefaultConfig() *Config {
	return &Config{
		ExpiryDays: map[string]int{
			metadata.RoleRoot:    365,
			metadata.RoleTargets: 7,
		},
		Thresholds: map[string]int{
			metadata.RoleRoot:    1,
			metadata.RoleTargets: 1,
		},
		Layout: &LayoutConfig{
			Path:        "root.layout",
			Functionary: "alice",
		},
	}
}

func validateConfig(cfg *Config) error {
	var validationErrors []error
	for role, days := range cfg.ExpiryDays {
		if days < 1 {
			validationErrors = append(validationErrors, fmt.Errorf("role %q has invalid expiry of %d days", role, days))
		}
	}
	for role, threshold := range cfg.Thresholds {
		if threshold < 1 {
			validationErrors = append(validationErrors, fmt.Errorf("role %q has invalid threshold %d", role, threshold))
		}
	}
	if cfg.ExtraRootKeys < 0 {
		validationErrors = append(validationErrors, fmt.Errorf("extraRootKeys cannot be negative"))
	}
	if threshold := cfg.Thresholds[metadata.RoleRoot]; threshold > 1+cfg.ExtraRootKeys {
		validationErrors = append(validationErrors, fmt.Errorf("root threshold %d exceeds the %d root keys generated", threshold, 1+cfg.ExtraRootKeys))
	}
	for _, target := range cfg.Targets {
		if target.Path == "" {
			validationErrors = append(validationErrors, fmt.Errorf("target missing path: %v", target))
		}
		if target.Source == "" {
			validationErrors = append(validationErrors, fmt.Errorf("target %q missing source", target.Path))
		}
		if err := validateTargetPath(target.Path); err != nil {
			validationErrors = append(validationErrors, err)
		}
	}
	if cfg.Layout != nil {
		if cfg.Layout.Path == "" {
			validationErrors = append(validationErrors, fmt.Errorf("layout missing path"))
		}
		if cfg.Layout.Functionary == "" {
			validationErrors = append(validationErrors, fmt.Errorf("layout missing functionary name"))
		}
	}
	if len(validationErrors) > 0 {
		return errors.Join(validationErrors...)
	}
	return nil
}

func validateTargetPath(path string) error {
	if strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return fmt.Errorf("invalid target path %q", path)
	}
	return nil
}

// LoadConfig reads a repository config file and fills in defaults for any
// role expiry or threshold the file does not set.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read repository config %s: %w", path, err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repository config: %w", err)
	}
	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid repository config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.ExpiryDays == nil {
		cfg.ExpiryDays = map[string]int{}
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = map[string]int{}
	}
	for _, role := range metadata.TopLevelRoles {
		if _, ok := cfg.ExpiryDays[role]; !ok {
			cfg.ExpiryDays[role] = defaults.ExpiryDays[role]
		}
		if _, ok := cfg.Thresholds[role]; !ok {
			cfg.Thresholds[role] = defaults.Thresholds[role]
		}
	}
}
