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

package mock

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/hybridrag/ai"
)

// MockEntityRecognizer is a test double for ai.EntityRecognizer.
type MockEntityRecognizer struct {
	// RecognizeFunc is called by Recognize if set.
	// If nil, capitalized word runs are reported as MISC entities.
	RecognizeFunc func(ctx context.Context, text string) (*ai.Analysis, error)

	gazetteer map[string]string

	mu        sync.Mutex
	callCount int
}

var _ ai.EntityRecognizer = (*MockEntityRecognizer)(nil)

// NewMockEntityRecognizer creates a mock recognizer with default behavior.
func NewMockEntityRecognizer() *MockEntityRecognizer {
	return &MockEntityRecognizer{}
}

// NewGazetteerRecognizer creates a mock recognizer that only reports the
// given entities. Keys are matched case-insensitively on word boundaries;
// values are labels.
func NewGazetteerRecognizer(entities map[string]string) *MockEntityRecognizer {
	g := make(map[string]string, len(entities))
	for k, v := range entities {
		g[strings.ToLower(k)] = v
	}
	return &MockEntityRecognizer{gazetteer: g}
}

// Recognize splits text into sentences and extracts entities from each.
func (m *MockEntityRecognizer) Recognize(ctx context.Context, text string) (*ai.Analysis, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, text)
	}

	analysis := &ai.Analysis{}
	for _, s := range SplitSentences(text) {
		var entities []ai.Entity
		if m.gazetteer != nil {
			entities = gazetteerEntities(s, m.gazetteer)
		} else {
			entities = capitalizedEntities(s)
		}
		analysis.Sentences = append(analysis.Sentences, ai.Sentence{Text: s, Entities: entities})
	}
	return analysis, nil
}

// CallCount returns the number of times Recognize was called.
func (m *MockEntityRecognizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom function.
func (m *MockEntityRecognizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.RecognizeFunc = nil
}

// SplitSentences splits text after '.', '!' or '?' when followed by whitespace or end of text.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

var notEntities = map[string]bool{
	"a": true, "an": true, "the": true, "it": true, "this": true, "that": true,
	"what": true, "where": true, "when": true, "who": true, "why": true, "how": true,
	"which": true, "is": true, "are": true, "was": true, "does": true, "do": true,
	"can": true, "tell": true, "me": true, "i": true, "in": true, "on": true,
	"of": true, "and": true, "there": true, "they": true, "he": true, "she": true,
	"we": true, "you": true, "its": true, "also": true,
}

func capitalizedEntities(sentence string) []ai.Entity {
	var entities []ai.Entity
	var run []string
	flush := func() {
		if len(run) > 0 {
			entities = append(entities, ai.Entity{Text: strings.Join(run, " "), Label: "MISC"})
			run = nil
		}
	}
	for _, field := range strings.Fields(sentence) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		first, _ := firstRune(word)
		if word == "" || !unicode.IsUpper(first) || notEntities[strings.ToLower(word)] {
			flush()
			continue
		}
		run = append(run, word)
		if strings.IndexFunc(field, func(r rune) bool { return r == ',' || r == ';' || r == ':' }) >= 0 {
			flush()
		}
	}
	flush()
	return entities
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}

func gazetteerEntities(sentence string, gazetteer map[string]string) []ai.Entity {
	type hit struct {
		pos   int
		text  string
		label string
	}
	lower := strings.ToLower(sentence)
	var hits []hit
	for name, label := range gazetteer {
		from := 0
		for {
			idx := strings.Index(lower[from:], name)
			if idx < 0 {
				break
			}
			pos := from + idx
			end := pos + len(name)
			if isBoundary(lower, pos-1) && isBoundary(lower, end) {
				hits = append(hits, hit{pos: pos, text: sentence[pos:end], label: label})
			}
			from = end
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if a.pos != b.pos {
			return a.pos - b.pos
		}
		return len(b.text) - len(a.text)
	})

	entities := make([]ai.Entity, 0, len(hits))
	for _, h := range hits {
		entities = append(entities, ai.Entity{Text: h.text, Label: h.label})
	}
	return entities
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9')
}
