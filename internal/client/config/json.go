package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/taskseal/internal/flagx"
	"github.com/dmitrijs2005/taskseal/internal/timex"
)

// JsonConfig is the on-disk form of Config. RequestTimeout accepts "3s"
// style strings as well as integer nanoseconds.
type JsonConfig struct {
	DatabaseDSN        string         `json:"database_dsn"`
	UserID             string         `json:"user_id"`
	UserName           string         `json:"user_name"`
	StoreMode          string         `json:"store_mode"`
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	AccessToken        string         `json:"access_token"`
	RelyingPartyID     string         `json:"relying_party_id"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson overlays the file named by -c/-config onto config. Fields left
// empty in the file keep their current value.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&config.DatabaseDSN, jc.DatabaseDSN)
	overlay(&config.UserID, jc.UserID)
	overlay(&config.UserName, jc.UserName)
	overlay(&config.StoreMode, jc.StoreMode)
	overlay(&config.ServerEndpointAddr, jc.ServerEndpointAddr)
	overlay(&config.AccessToken, jc.AccessToken)
	overlay(&config.RelyingPartyID, jc.RelyingPartyID)
	if jc.RequestTimeout.Duration != 0 {
		config.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
