// Package gate implements the gRPC transport of the gate controller.
//
// The service is described by hand over protobuf well-known types: commands
// take google.protobuf.Empty and every method answers with the status document
// as a google.protobuf.Struct, the same keys the HTTP surface serves.
package gate
