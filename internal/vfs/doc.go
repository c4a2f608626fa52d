// Package vfs provides the virtual filesystem layer that mediates every
// file operation an agent performs.
//
// All backends share one contract (read, write, edit, ls, grep, glob) and
// one path namespace: normalized, root-relative virtual paths validated by
// Validate. Three substrates implement the contract:
//   - StateBackend: turn-scoped files owned by the caller; mutations are
//     returned as a Patch for the owner to apply.
//   - StoreBackend: a long-lived key-value namespace shared across sessions;
//     mutations are applied directly.
//   - DiskBackend: a real directory tree rooted at a configured directory.
//
// Expected, agent-recoverable failures (duplicate file, ambiguous edit,
// bad regex) travel as data inside result values so the agent can react on
// its next turn. Only contract violations (an invalid path) are returned
// as Go errors and abort the call with no effect.
package vfs
