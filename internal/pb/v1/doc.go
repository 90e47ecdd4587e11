// Package pb holds the DeviceService gRPC contract.
//
// The service is described with protobuf well-known types only, so no
// generated message code is needed: tool envelopes and status travel as
// google.protobuf.Struct.
package pb
