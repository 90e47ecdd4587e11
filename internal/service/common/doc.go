// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for the device admin API with
// timeouts, and a guard that keeps a second device core from starting.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
