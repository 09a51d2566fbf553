package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// profileConfig holds connection settings for a single profile.
type profileConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// configFile is the ~/.tasktrail/config.yaml structure.
type configFile struct {
	Profiles      map[string]profileConfig `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

// active returns the selected profile, falling back to "default".
func (c *configFile) active() (profileConfig, bool) {
	if c == nil || c.Profiles == nil {
		return profileConfig{}, false
	}

	name := c.ActiveProfile
	if name == "" {
		name = "default"
	}

	p, ok := c.Profiles[name]
	return p, ok
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasktrail", "config.yaml"), nil
}

// loadConfigFile reads the config file. A missing file yields (path, nil, err).
func loadConfigFile() (string, *configFile, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", nil, err
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, err
	}

	return cfgPath, &cfg, nil
}

// resolveSettings applies precedence: explicit flag, then env, then config file.
func resolveSettings(url, token string, cfg *configFile) (string, string) {
	if url == defaultURL {
		if v := os.Getenv("TASKTRAIL_URL"); v != "" {
			url = v
		}
	}
	if token == "" {
		token = os.Getenv("TASKTRAIL_TOKEN")
	}

	if p, ok := cfg.active(); ok {
		if url == defaultURL && p.URL != "" {
			url = p.URL
		}
		if token == "" && p.Token != "" {
			token = p.Token
		}
	}

	return url, token
}

// resolveConfig fills flagURL and flagToken from env and the config file.
func resolveConfig() {
	_, cfg, _ := loadConfigFile()
	flagURL, flagToken = resolveSettings(flagURL, flagToken, cfg)
}

// writeConfig stores url and token as the default profile, keeping other profiles.
func writeConfig(url, token string) (string, error) {
	cfgPath, cfg, err := loadConfigFile()
	if cfgPath == "" {
		return "", err
	}
	if cfg == nil {
		cfg = &configFile{}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]profileConfig{}
	}

	cfg.Profiles["default"] = profileConfig{URL: url, Token: token}
	cfg.ActiveProfile = "default"

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
