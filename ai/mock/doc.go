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

// Package mock provides test doubles for the ai package interfaces.
//
// The mocks are deterministic, safe for concurrent use, and count their calls
// so tests can assert on how often an external service would have been hit.
//
// # Usage
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	generator := mock.NewMockGenerator()
//	generator.GenerateFunc = func(ctx context.Context, msgs []ai.Message, opts ai.GenerateOptions) (string, error) {
//	    return "<rewritten>What is the capital of France?</rewritten>", nil
//	}
//	count := generator.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: hashed bag-of-words vectors, so texts sharing words are similar
//   - MockEntityRecognizer: splits sentences on terminal punctuation and treats
//     runs of capitalized words as entities
//   - MockGenerator: returns a fixed reply
//   - MockProvider: aggregates the three
package mock
