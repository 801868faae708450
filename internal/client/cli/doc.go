// Package cli provides the interactive TaskSeal command-line client.
//
// It wires configuration, the local database, the record store (local
// SQLite or the remote gRPC store), the software passkey authenticator and
// the task and encryption services, and drives them from a small REPL.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// The prompt shows the user id and the current encryption state.
package cli
