// Package common contains shared constants, sentinel errors and small
// helpers used across TaskSeal components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"
