// Package services holds adapters around the external tools the pipeline
// shells out to, plus the shared error taxonomy that classifies stage
// failures into the codes reported upstream.
package services
