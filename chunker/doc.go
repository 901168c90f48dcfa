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

// Package chunker splits documents into overlapping, token-bounded chunks.
//
// Text is tokenized with the cl100k_base encoding and cut into windows of a
// fixed number of tokens. Consecutive windows share overlap tokens. Plain text
// and PDF files are supported; each chunk is titled "<name> - Chunk <n>".
//
//	c, err := chunker.New(chunker.WithChunkSize(500), chunker.WithOverlap(50))
//	file, err := chunker.ReadFile("notes/paris.txt")
//	chunks, err := c.Process(file)
package chunker
