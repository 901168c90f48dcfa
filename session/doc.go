// Package session answers questions over a hybrid index with conversational memory.
//
// A Session owns one search.Index, a planner.Planner, a generator, and a
// Memory of past turns. Ask runs the full pipeline for one question:
//
//  1. rewrite the question against recent turns
//  2. decompose it into ranked sub-queries (or short phrases)
//  3. search each query and merge the hits, dropping duplicate content
//  4. answer from the numbered context, or return core.NoInformationAnswer
//     without calling the generator when nothing relevant was found
//
// Memory only changes after a successful answer. A Registry keeps
// independent sessions addressable by id.
package session
