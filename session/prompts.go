package session

import (
	"fmt"
	"strings"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
)

const answerInstructions = `You are a helpful AI assistant. Answer the user's question using the relevant
information provided below. If the information does not contain the answer, say so
rather than guessing. Refer to documents by their number when it helps the reader.`

func instructions(queries []string) string {
	var sb strings.Builder
	sb.WriteString(answerInstructions)
	sb.WriteString("\n\nThe documents were retrieved with these searches:\n")
	for _, q := range queries {
		fmt.Fprintf(&sb, "- %s\n", q)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func contextBlock(docs []core.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Relevant Information:\n")
	for i, doc := range docs {
		fmt.Fprintf(&sb, "\nDocument %d (%s):\n%s\n", i+1, doc.Chunk.Title, doc.Chunk.Content)
	}
	return sb.String()
}

// answerMessages builds the generation request: instructions, the numbered
// context block, then the user's original question.
func answerMessages(question string, queries []string, docs []core.ScoredChunk) []ai.Message {
	return []ai.Message{
		ai.SystemMessage(instructions(queries)),
		ai.SystemMessage(contextBlock(docs)),
		ai.UserMessage(question),
	}
}
