// Package workitem defines the unit of work flowing through the pipeline.
package workitem
