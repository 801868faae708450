package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/taskseal/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-d string   SQLite DSN
//	-u string   user id
//	-n string   display name
//	-m string   store mode, local or remote
//	-a string   address and port of the record server
//	-t string   access token for the record server
//	-r string   passkey relying party id
//	-w int      remote request timeout in seconds
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "SQLite DSN")
	fs.StringVar(&config.UserID, "u", config.UserID, "user id")
	fs.StringVar(&config.UserName, "n", config.UserName, "display name")
	fs.StringVar(&config.StoreMode, "m", config.StoreMode, "store mode: local or remote")
	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "address and port of the record server")
	fs.StringVar(&config.AccessToken, "t", config.AccessToken, "access token for the record server")
	fs.StringVar(&config.RelyingPartyID, "r", config.RelyingPartyID, "passkey relying party id")
	timeout := fs.Int("w", int(config.RequestTimeout.Seconds()), "remote request timeout (in seconds)")

	if err := flagx.ParseKnown(fs, args); err != nil {
		return err
	}

	config.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
