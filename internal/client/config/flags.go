package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/mediagate/internal/flagx"
)

// ValueFlags lists every flag understood by the configuration layer that
// consumes a value. The CLI uses it to find where the command starts.
var ValueFlags = []string{"-c", "-config", "-s", "-t", "-m", "-j", "-o", "-p", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-s string   homeserver base URL
//	-t int      HTTP request timeout (seconds, 0 disables)
//	-m string   seal policy: permissive | sealed-only
//	-j string   scan journal (SQLite) path
//	-o string   export directory for downloaded media
//	-p int      parallel scans in batch mode
//	-l string   log level
//
// -t only applies when given, so finer JSON or env timeouts survive.
// os.Args is filtered with flagx.FilterArgs so commands and the -c/-config
// flag do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-t", "-m", "-j", "-o", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.HomeserverURL, "s", cfg.HomeserverURL, "homeserver base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SealPolicy, "m", cfg.SealPolicy, "seal policy: permissive or sealed-only")
	fs.StringVar(&cfg.JournalPath, "j", cfg.JournalPath, "scan journal path")
	fs.StringVar(&cfg.ExportDir, "o", cfg.ExportDir, "export directory")
	fs.IntVar(&cfg.BatchParallelism, "p", cfg.BatchParallelism, "parallel scans in batch mode")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
}
