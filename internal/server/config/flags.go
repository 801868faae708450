package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-k string   print an access token for this user id and exit
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	validity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.IssueTokenFor, "k", config.IssueTokenFor, "print an access token for the user id and exit")

	if err := flagx.ParseKnown(fs, args); err != nil {
		return err
	}

	config.AccessTokenValidityDuration = time.Duration(*validity) * time.Minute
	return nil
}
