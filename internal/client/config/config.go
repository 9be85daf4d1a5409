package config

import (
	"time"

	"github.com/dmitrijs2005/melonmail/internal/common"
)

// S3 holds the content store bucket settings. Empty credentials fall back
// to the default AWS credential chain.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Config holds runtime settings for the melonmail client.
type Config struct {
	LedgerAddr     string
	KeyfilePath    string
	BatchSize      int64
	LogLevel       string
	S3             S3
	RedisAddr      string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	MailDomain     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LedgerAddr = "127.0.0.1:50051"
	c.KeyfilePath = "melonmail.key"
	c.BatchSize = 50
	c.LogLevel = "info"
	c.S3.Region = "us-east-1"
	c.CacheTTL = 24 * time.Hour
	c.RequestTimeout = 15 * time.Second
	c.MailDomain = common.DefaultMailDomain
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
