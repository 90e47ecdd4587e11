// Package device implements the gRPC admin transport of the device core.
//
// It adapts core operations to well-known protobuf messages and maps core
// errors to gRPC status codes.
package device
