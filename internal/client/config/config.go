package config

import "time"

// Config holds runtime settings for the TaskSeal CLI.
//
// Fields:
//   - DatabaseDSN: SQLite DSN of the local database (tasks, settings, passkeys).
//   - UserID: id of the user the session acts for.
//   - UserName: display name shown by the passkey prompt; defaults to UserID.
//   - StoreMode: "local" keeps records in SQLite, "remote" on the server.
//   - ServerEndpointAddr: host:port of the record server (remote mode).
//   - AccessToken: JWT sent to the record server (remote mode).
//   - RelyingPartyID: passkey relying party id.
//   - RequestTimeout: upper bound of a single remote call.
type Config struct {
	DatabaseDSN        string
	UserID             string
	UserName           string
	StoreMode          string
	ServerEndpointAddr string
	AccessToken        string
	RelyingPartyID     string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "taskseal.db"
	c.UserID = "local"
	c.StoreMode = "local"
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RelyingPartyID = "taskseal.local"
	c.RequestTimeout = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.UserName == "" {
		cfg.UserName = cfg.UserID
	}
	return cfg, nil
}
