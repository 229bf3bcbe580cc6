// Package imageslots provides a per-user fixed-capacity image slot store
// with pluggable repository and blob storage backends.
//
// Every user owns a fixed number of integer-indexed slots (default 10). An
// upload fills the lowest free index; once all slots are occupied, the oldest
// slot is evicted and its index reused. The package exposes a single Service
// interface that orchestrates allocation, eviction, blob writes and metadata
// commits. Implementations of repositories (memory, SQLite, Postgres) and
// blob stores (memory, filesystem, S3) are provided under subpackages.
//
// # Consistency
//
// Blob and metadata stores are not updated under a shared transaction.
// Instead the write ordering is chosen so that a crash leaves at worst an
// unreferenced blob, never a slot record pointing at a missing blob: new
// blobs are written before their records are inserted, and old records are
// deleted only after their blob delete was attempted. A record whose blob
// has gone missing reads as not found.
package imageslots
