// Package store provides a SQLite ledger of generation runs.
//
// Every successful generate records one run: the manifest content hash, the
// backend it was converted for, the emitted defines and declarations, the
// number of warnings raised, and the type definitions in emission order.
//
// # Ordering
//
//   - Runs are stamped with seq, a logical clock resumed from the highest
//     stored value on Open. Wall time is never used.
//   - Every list query orders by seq ASC, id ASC COLLATE BINARY.
//
// # Identity
//
// Run ids are UUIDv7 strings from an IDGenerator. Tests pass a
// FixedGenerator for stable ids.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
