// Package store holds the application state snapshot.
//
// Store is a synchronous get/set container: SetState replaces the snapshot
// and calls every subscriber before returning. Snapshots are values; callers
// derive a new State from GetState and write it back.
package store
