// Package ingestion turns files into indexed chunks.
//
// A Pipeline chunks files concurrently on a worker pool, keeps the resulting
// chunks in file order, and hands them to a search.Index in one batch. An
// empty index is loaded; a loaded index is appended to unless the pipeline was
// built with WithAppend(false), in which case the batch is ignored the same
// way a second Load is.
//
// Progress can be reported per file through a ProgressTracker.
package ingestion
