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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty or whitespace only
//
// NOT validated:
//   - Title and Summary (informational only)
func ValidateChunk(chunk Chunk) error {
	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyContent)
	}
	return nil
}

// ValidateChunks validates a batch of chunks prior to indexing.
// An empty batch fails with ErrEmptyCorpus.
func ValidateChunks(chunks []Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}
	for i, chunk := range chunks {
		if err := ValidateChunk(chunk); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

// ValidateSubQuery checks that a sub-query has text, a known kind, and an
// importance within [MinImportance, MaxImportance].
func ValidateSubQuery(q SubQuery) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: sub-query %w", ErrInvalidArgument, ErrEmptyContent)
	}
	if _, ok := ParseSubQueryKind(string(q.Kind)); !ok {
		return fmt.Errorf("%w: unknown sub-query kind %q", ErrInvalidArgument, q.Kind)
	}
	if q.Importance < MinImportance || q.Importance > MaxImportance {
		return fmt.Errorf("%w: importance %d outside %d..%d", ErrInvalidArgument,
			q.Importance, MinImportance, MaxImportance)
	}
	return nil
}
