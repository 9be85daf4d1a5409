// Package config loads runtime configuration for the melonmail client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the ledger daemon
//	-k string   path of the passphrase-sealed keyfile
//	-b int      page size in blocks
//	-l string   log level (debug, info, warn, error)
//	-s string   S3 bucket for mail content; empty keeps content in memory
//	-e string   S3 endpoint override (MinIO, localstack)
//	-r string   redis address for the content cache; empty disables it
//	-m string   mail domain appended to bare user names
//
// # JSON schema
//
//	{
//	  "ledger_addr": "127.0.0.1:50051",
//	  "keyfile": "melonmail.key",
//	  "batch_size": 50,
//	  "log_level": "info",
//	  "s3": {"bucket": "mail", "region": "us-east-1", "endpoint": "http://127.0.0.1:9000",
//	         "access_key": "minio", "secret_key": "minio123"},
//	  "redis_addr": "127.0.0.1:6379",
//	  "cache_ttl": "24h",
//	  "request_timeout": "15s",
//	  "mail_domain": "decenter-test.test"
//	}
//
// Durations use timex.Duration, so they can be strings or nanoseconds.
package config
