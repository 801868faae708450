// Package config loads runtime configuration for the TaskSeal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   SQLite DSN (default "taskseal.db")
//	-u string   user id (default "local")
//	-n string   display name (defaults to the user id)
//	-m string   store mode: local or remote (default "local")
//	-a string   address:port of the record server
//	-t string   access token for the record server
//	-r string   passkey relying party id (default "taskseal.local")
//	-w int      remote request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so it can be either a
// string like "3s" or integer nanoseconds:
//
//	{
//	  "database_dsn": "taskseal.db",
//	  "user_id": "ada",
//	  "store_mode": "remote",
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJ...",
//	  "request_timeout": "3s"
//	}
//
// This package does not read environment variables; use the JSON file or
// flags to configure values.
package config
