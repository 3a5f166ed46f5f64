/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/kentakayama/its-station/resources"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Load layers the embedded defaults, an optional config file and ITSS_*
// environment variables onto v. Flags bound to v by the caller take
// precedence over all of them.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(resources.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("read default config: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix("ITSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Station.Dir == "" {
		return fmt.Errorf("%w: station directory is empty", ErrInvalidConfig)
	}
	if c.Station.Period <= 0 {
		return fmt.Errorf("%w: broadcast period must be positive", ErrInvalidConfig)
	}
	if c.Authority.EnrollmentURL == "" || c.Authority.AuthorizationURL == "" {
		return fmt.Errorf("%w: authority URLs are required", ErrInvalidConfig)
	}
	if c.HSM.Enabled && c.HSM.KeyURI == "" {
		return fmt.Errorf("%w: hsm.key_uri is required when the HSM is enabled", ErrInvalidConfig)
	}
	if _, err := ParseG5Sim(c.G5Sim); err != nil {
		return err
	}
	return nil
}
