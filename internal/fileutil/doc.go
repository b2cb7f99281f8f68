// Package fileutil provides the small filesystem helpers the pipeline
// stages share.
package fileutil
