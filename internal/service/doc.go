// Package service orchestrates board mutations. Every command follows the
// same pipeline: validate the command shape, authorize the caller's
// membership, load the minimal snapshot, compute placement deltas, commit
// them atomically, and finally broadcast an identifier-only event to the
// board topic. Broadcast runs strictly after commit and its failure never
// rolls anything back.
package service
