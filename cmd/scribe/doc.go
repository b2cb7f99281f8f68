// Command scribe turns audio and video episodes into timestamped transcripts.
// It drains a remote pull queue with `scribe run` or harvests a content feed
// in bulk with `scribe harvest`.
package main
