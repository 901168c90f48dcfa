// Package reembed rebuilds the vectors of saved session indexes.
//
// Chunk vectors are only comparable with query vectors from the same
// embedding model. After switching models, run a Reembedder over the saved
// sessions of an engine opened with the new model; keyword and knowledge
// graph state are left as they are.
//
// Embedding calls during re-embedding go through WithRetry, which retries
// failed batches with exponential backoff. Interactive search and question
// answering do not retry.
package reembed
