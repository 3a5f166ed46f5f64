/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Station   StationConfig   `mapstructure:"station"`
	Authority AuthorityConfig `mapstructure:"authority"`
	HSM       HSMConfig       `mapstructure:"hsm"`
	G5Sim     string          `mapstructure:"g5sim"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StationConfig captures the tunables of the station itself.
type StationConfig struct {
	Dir            string        `mapstructure:"dir"`
	Period         time.Duration `mapstructure:"period"`
	Payload        string        `mapstructure:"payload"`
	SignerID       string        `mapstructure:"signer_id"`
	EAID           string        `mapstructure:"ea_id"`
	AdditionalData string        `mapstructure:"additional_data"`
	Permissions    []int64       `mapstructure:"permissions"`
	StatusAddr     string        `mapstructure:"status_addr"`
}

// AuthorityConfig locates the Enrollment and Authorization Authorities.
type AuthorityConfig struct {
	EnrollmentURL    string        `mapstructure:"ea_url"`
	AuthorizationURL string        `mapstructure:"aa_url"`
	InsecureTLS      bool          `mapstructure:"insecure_tls"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Logger           *zap.Logger   `mapstructure:"-"`
}

// HSMConfig selects a PKCS#11 token holding the station key.
type HSMConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ModulePath string `mapstructure:"module_path"`
	TokenLabel string `mapstructure:"token_label"`
	PIN        string `mapstructure:"pin"`
	KeyURI     string `mapstructure:"key_uri"`
}
