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

package ner

import (
	"fmt"
	"strings"

	"github.com/poiesic/hybridrag/ai"
)

const responseSchema = `{
  "type": "object",
  "properties": {
    "sentences": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "entities": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "text": {"type": "string"},
                "label": {"type": "string"}
              },
              "required": ["text", "label"],
              "additionalProperties": false
            }
          }
        },
        "required": ["text", "entities"],
        "additionalProperties": false
      }
    }
  },
  "required": ["sentences"],
  "additionalProperties": false
}`

const promptTemplate = `Split the given text into sentences and list the named entities that appear in each sentence. Return JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Keep sentences in their original order. Copy sentence text verbatim.
- Entity text must be copied exactly as it appears in the sentence.
- Label must be exactly one of: %s.
- Only include proper names, places, organizations, products, events, dates and similar named things. Do not include common nouns or pronouns.
- A sentence with no entities still appears, with "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Paris is the capital of France. The Eiffel Tower opened in 1889."
Output:
{
  "sentences": [
    {"text":"Paris is the capital of France.","entities":[{"text":"Paris","label":"GPE"},{"text":"France","label":"GPE"}]},
    {"text":"The Eiffel Tower opened in 1889.","entities":[{"text":"Eiffel Tower","label":"FAC"},{"text":"1889","label":"DATE"}]}
  ]
}

Example (no entities):
Input: "it rained all day"
Output:
{
  "sentences": [
    {"text":"it rained all day","entities":[]}
  ]
}`

// buildSystemPrompt creates the system prompt with entity labels embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(promptTemplate, responseSchema, strings.Join(ai.EntityLabels, ", "))
}
