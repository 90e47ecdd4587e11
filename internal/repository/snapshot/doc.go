// Package snapshot stores the last known peripheral Snapshot.
//
// The MemoryRepository keeps the snapshot in process memory and exposes a
// Repository interface that the peripheral controllers and tools depend on.
package snapshot
