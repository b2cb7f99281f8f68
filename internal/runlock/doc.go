// Package runlock enforces single-instance execution of the pipeline via an
// advisory file lock with PID liveness detection.
package runlock
