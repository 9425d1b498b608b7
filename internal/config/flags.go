package config

import (
	"flag"
	"os"
	"time"

	"github.com/finwise/dataguard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-o string   root principal (break-glass admin id)
//	-s string   actor token HMAC secret
//	-t int      token validity, minutes
//	-f          bind field names as AAD into new envelopes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// Args are first filtered to the flags handled here (flagx.FilterArgs) so
// the tool-specific flags of each cmd binary do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-o", "-s", "-t", "-f", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RootPrincipal, "o", config.RootPrincipal, "root principal id")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "actor token secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	fs.BoolVar(&config.BindFieldAAD, "f", config.BindFieldAAD, "bind field AAD into new envelopes")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
}

// EncKeyHex returns the environment-configured encryption key. Validation
// happens in cryptox.ParseKey; an empty string there is a key-format error,
// never a silent default.
func EncKeyHex() string {
	return os.Getenv(EncKeyEnvVar)
}
