// Package client contains the client-side building blocks that connect the
// TaskSeal CLI to its record store.
//
// # Overview
//
// The package provides:
//  1. Local persistence bootstrap (InitDatabase, RunMigrations): opens the
//     SQLite database and applies the embedded goose migrations.
//  2. Store wiring (OpenStores): returns the task and settings repositories
//     for the configured mode, either the local SQLite ones or the remote
//     ones backed by RemoteStore.
//  3. RemoteStore, a gRPC client for the RecordStore service. It injects the
//     access token into every call and maps gRPC status codes to sentinel
//     errors. The server only ever receives placeholders and envelopes for
//     encrypted records; encryption happens before a record reaches this
//     package.
//
// # Error Handling
//
// Transport conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, and common.ErrorNotFound
// for records that do not exist.
package client
