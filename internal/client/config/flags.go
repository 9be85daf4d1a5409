package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/melonmail/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Unknown flags are filtered out with flagx.FilterArgs so the JSON loader's
// -c/-config does not trip the parser. Parse errors panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-b", "-l", "-s", "-e", "-r", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LedgerAddr, "a", cfg.LedgerAddr, "address and port of the ledger daemon")
	fs.StringVar(&cfg.KeyfilePath, "k", cfg.KeyfilePath, "path of the keyfile")
	fs.Int64Var(&cfg.BatchSize, "b", cfg.BatchSize, "page size in blocks")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.S3.Bucket, "s", cfg.S3.Bucket, "S3 bucket for mail content")
	fs.StringVar(&cfg.S3.Endpoint, "e", cfg.S3.Endpoint, "S3 endpoint override")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address for the content cache")
	fs.StringVar(&cfg.MailDomain, "m", cfg.MailDomain, "mail domain")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
