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

import "errors"

// Engine error taxonomy. Callers should match with errors.Is.
var (
	// ErrConfig indicates malformed chunking or weight configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmptyCorpus indicates an attempt to load zero chunks.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrInvalidArgument indicates a precondition violation on load or search.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyContent indicates a chunk or question with no content.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrUnsupportedFormat indicates a file type the chunker cannot process.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrDecode indicates file content could not be decoded into text.
	ErrDecode = errors.New("could not decode file")

	// ErrRetrievalFailed indicates an external service failed during search or load.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrGenerationFailed indicates the generation service failed.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrIndexNotReady indicates a query against an index with no documents.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrNotFound indicates no saved index state exists.
	ErrNotFound = errors.New("not found")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)
