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

// Package ai provides abstractions for the model services used by hybridrag.
//
// The package defines three service interfaces and an aggregate:
//
//   - Embedder: Generates vector embeddings from text
//   - EntityRecognizer: Segments text into sentences and finds named entities
//   - Generator: Produces chat completions from an ordered message list
//   - AIProvider: Aggregates the services for initialization and lifecycle
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible endpoints via langchaingo
//   - ai/ollama: Native Ollama API
//   - ai/ner: LLM-prompted entity recognition over any Generator
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ollama.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction. Mock constructors return CONCRETE
// types so tests can inject behavior and assert on call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	embedder := mock.NewMockEmbedder()          // returns *mock.MockEmbedder
package ai
