// Package pullqueue implements the remote job-queue work-item source:
// fetch-one semantics with per-item success and typed-error reporting.
package pullqueue
