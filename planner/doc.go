// Package planner turns a conversational question into search queries.
//
// A Planner makes up to two model calls per question. Rewrite resolves
// pronouns and implicit references against recent conversation turns, and
// Decompose splits the self-contained question into typed, ranked sub-queries.
// Phrases is a lighter alternative to Decompose that asks for short keyword
// phrases instead.
//
// Model replies are parsed leniently. Each parse reports a ParseOutcome so
// callers can tell a clean parse from a partial one or from a reply that
// ignored the requested format entirely. Callers are expected to fall back to
// the original question when nothing usable comes back:
//
//	dec, err := p.Decompose(ctx, question)
//	if err != nil {
//		return err
//	}
//	for _, q := range dec.Queries(question) {
//		// search q
//	}
package planner
