package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/melonmail/internal/flagx"
	"github.com/dmitrijs2005/melonmail/internal/timex"
)

type jsonS3 struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	LedgerAddr     string         `json:"ledger_addr"`
	KeyfilePath    string         `json:"keyfile"`
	BatchSize      int64          `json:"batch_size"`
	LogLevel       string         `json:"log_level"`
	S3             jsonS3         `json:"s3"`
	RedisAddr      string         `json:"redis_addr"`
	CacheTTL       timex.Duration `json:"cache_ttl"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	MailDomain     string         `json:"mail_domain"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays Config with the values present in the JSON file named
// by -c/-config. Missing keys keep their defaults. Read or decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.LedgerAddr, jc.LedgerAddr)
	setString(&cfg.KeyfilePath, jc.KeyfilePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.S3.Bucket, jc.S3.Bucket)
	setString(&cfg.S3.Region, jc.S3.Region)
	setString(&cfg.S3.Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3.AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3.SecretKey, jc.S3.SecretKey)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.MailDomain, jc.MailDomain)

	if jc.BatchSize > 0 {
		cfg.BatchSize = jc.BatchSize
	}
	if jc.CacheTTL.Duration > 0 {
		cfg.CacheTTL = jc.CacheTTL.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
