// Package stage defines the handler contract the run controller drives
// work items through: fetch, normalize, recognize, publish.
package stage
