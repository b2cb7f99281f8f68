// Package ledger persists which episode identifiers have completed each
// pipeline stage, backed by SQLite. Set-difference queries against the ledger
// are what keep bulk runs from re-fetching, re-normalizing, or re-recognizing
// finished work.
package ledger
