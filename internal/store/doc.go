// Package store defines the persistence interfaces of the board tracker and
// the shared error vocabulary of their implementations. It also provides the
// unit-of-work helper RunInTransaction: services load snapshots, compute
// placement deltas, and commit them through a single transaction, relying on
// per-row version checks to surface concurrent writers as ErrConflict.
package store
