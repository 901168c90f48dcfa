// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import "strings"

// Entity is a named entity found in text.
type Entity struct {
	// Text is the entity surface form, e.g. "Eiffel Tower".
	Text string

	// Label is the entity type, e.g. "GPE", "PERSON", "FAC".
	Label string
}

// Sentence is one sentence of analyzed text and the entities it mentions.
type Sentence struct {
	Text     string
	Entities []Entity
}

// Analysis is the result of entity recognition over a piece of text.
type Analysis struct {
	Sentences []Sentence
}

// Entities returns every entity in the analysis in sentence order.
func (a *Analysis) Entities() []Entity {
	if a == nil {
		return nil
	}
	var out []Entity
	for _, s := range a.Sentences {
		out = append(out, s.Entities...)
	}
	return out
}

// EntityLabels lists the labels recognizers are asked to use.
var EntityLabels = []string{
	"PERSON",
	"NORP",
	"FAC",
	"ORG",
	"GPE",
	"LOC",
	"PRODUCT",
	"EVENT",
	"WORK_OF_ART",
	"LAW",
	"LANGUAGE",
	"DATE",
	"MISC",
}

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a generation request.
type Message struct {
	Role    MessageRole
	Content string
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// GenerateOptions configures one generation call.
type GenerateOptions struct {
	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// MaxTokens is the maximum number of tokens to generate. Zero means provider default.
	MaxTokens int

	// JSONMode asks the model for a JSON object reply where supported.
	JSONMode bool
}

// NormalizeLabel upper-cases a label and joins words with underscores.
func NormalizeLabel(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	return strings.Join(strings.Fields(label), "_")
}

// Batch splits items into consecutive slices of at most size elements.
// A non-positive size yields a single batch.
func Batch[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
