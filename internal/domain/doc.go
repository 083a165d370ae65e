// Package domain contains the core entities of the board tracker: boards,
// columns, tasks, memberships, and comments, together with their validation
// rules. Entities here have no knowledge of persistence or transport.
package domain
