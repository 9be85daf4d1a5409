package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/melonmail/internal/flagx"
	"github.com/dmitrijs2005/melonmail/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// accept both "1m" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	ChallengeValidityDuration   timex.Duration `json:"challenge_validity_duration"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson loads configuration values from the file named by -c/-config
// and overlays every non-empty value onto config. Without the flag nothing
// is loaded. An unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrGRPC != "" {
		config.EndpointAddrGRPC = c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ChallengeValidityDuration.Duration > 0 {
		config.ChallengeValidityDuration = c.ChallengeValidityDuration.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
