// Package state persists the install history of the playground.
//
// Every install attempt that reaches the package manager is recorded as a
// HistoryEntry in a JSON file next to the playground directory. History is
// informational only: nothing in sketchpm reads it to decide what to install,
// and losing it never affects the workspace.
//
// Key concepts:
//   - HistoryEntry: One install attempt with its outcome and timing
//   - HistoryStore: Interface for appending and loading entries
//   - FileHistoryStore: JSON-array implementation written atomically
package state
