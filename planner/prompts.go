package planner

import (
	"fmt"
	"strings"

	"github.com/poiesic/hybridrag/core"
)

const (
	rewriteTag   = "rewritten"
	subQueryTag  = "subqueries"
	phrasesTag   = "phrases"
	maxPhrases   = 5
	contextTurns = 2
)

const rewriteSystemPrompt = `You rewrite follow-up questions so they can be understood without the conversation.

Replace pronouns and implicit references ("it", "they", "that one", "the second option") with
the entities they refer to in the conversation. Keep the user's intent, wording, and language.
If the question is already self-contained, repeat it unchanged.

Reply with the rewritten question only, wrapped exactly like this:
<rewritten>the self-contained question</rewritten>`

const decomposeSystemPrompt = `You plan searches over a document collection.

Break the user's question into 2 to 4 focused search queries. Tag each one with a type:
- context: background needed to understand the question
- detail: a specific fact the answer depends on
- verification: a claim that should be checked against the documents

Give each query an importance from 1 (nice to have) to 5 (essential).
Queries should be short and keyword dense.

Reply with a single block in exactly this format, one blank line between queries:
<subqueries>
type: detail
importance: 5
query: eiffel tower construction date

type: context
importance: 3
query: paris world fair 1889
</subqueries>`

const phrasesSystemPrompt = `You turn a question into short search phrases for a document collection.

Write up to 5 phrases of two to six words each, keyword dense, covering different aspects
of the question. Reply with one phrase per line inside a single block:
<phrases>
eiffel tower construction
gustave eiffel engineer
</phrases>`

func rewriteUserPrompt(question string, turns []core.Turn) string {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, t := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
	}
	fmt.Fprintf(&sb, "\nFollow-up question: %s", question)
	return sb.String()
}
