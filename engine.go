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

package hybridrag

import (
	"context"
	"log/slog"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/ai/ollama"
	"github.com/poiesic/hybridrag/ai/openai"
	"github.com/poiesic/hybridrag/search"
	"github.com/poiesic/hybridrag/session"
	"github.com/poiesic/hybridrag/storage"
	"github.com/poiesic/hybridrag/storage/badger"
)

// Engine wires a blob store, an AI provider, and a session registry together.
type Engine struct {
	store    storage.BlobStore
	provider ai.AIProvider
	registry *session.Registry
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	store       storage.BlobStore
	indexOpts   []search.Option
	sessionOpts []session.Option
	logger      *slog.Logger
}

// WithAIConfig selects and configures the AI provider.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses an existing provider instead of building one from the AI config.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithStore uses store instead of opening a badger database.
func WithStore(store storage.BlobStore) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithIndexOptions adds options for every session index.
func WithIndexOptions(opts ...search.Option) EngineOption {
	return func(o *engineOptions) {
		o.indexOpts = append(o.indexOpts, opts...)
	}
}

// WithSessionOptions adds options for every session.
func WithSessionOptions(opts ...session.Option) EngineOption {
	return func(o *engineOptions) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// WithLogger sets the logger handed to the registry and its sessions.
// A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewProvider builds the provider named by config.Provider.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	config.Normalize()
	if config.Provider == ai.ProviderOllama {
		return ollama.NewProvider(config)
	}
	return openai.NewProvider(config)
}

// Open creates an engine storing session indexes in a badger database at
// path. An empty path keeps everything in memory.
func Open(path string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	store := options.store
	if store == nil {
		var err error
		if path == "" {
			store, err = badger.NewMemoryBlobStore()
		} else {
			store, err = badger.OpenBlobStore(path)
		}
		if err != nil {
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	registry, err := session.NewRegistry(provider,
		session.WithStore(store),
		session.WithIndexOptions(options.indexOpts...),
		session.WithSessionOptions(options.sessionOpts...),
		session.WithRegistryLogger(options.logger))
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}

	return &Engine{
		store:    store,
		provider: provider,
		registry: registry,
		logger:   options.logger.With("component", "engine"),
	}, nil
}

// Close removes live sessions, then closes the provider and the store.
// Only a store failure is returned.
func (e *Engine) Close() error {
	if err := e.registry.Close(); err != nil {
		e.logger.Error("error closing sessions", "err", err)
	}
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing blob store", "err", err)
		return err
	}
	return nil
}

// Store returns the blob store holding saved session indexes.
func (e *Engine) Store() storage.BlobStore { return e.store }

// Provider returns the AI provider shared by every session.
func (e *Engine) Provider() ai.AIProvider { return e.provider }

// Sessions returns the session registry.
func (e *Engine) Sessions() *session.Registry { return e.registry }

// NewSession starts a session with an empty index.
func (e *Engine) NewSession() (*session.Session, error) {
	return e.registry.Create()
}

// Session returns the live session id, restoring it from the store if needed.
func (e *Engine) Session(ctx context.Context, id string) (*session.Session, error) {
	return e.registry.Open(ctx, id)
}
