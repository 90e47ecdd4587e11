// Package mcp implements the device's tool protocol: typed tool properties,
// an ordered registry with payload-bounded pagination, argument binding with
// exact kind matching, a budgeted worker spawner, and the JSON-RPC 2.0
// server that answers initialize, tools/list and tools/call.
//
// Tool handlers never run on the control loop. Each call is bound on the
// caller's goroutine and executed by the Spawner; its single reply goes to
// the Reply sink supplied with the request.
package mcp
