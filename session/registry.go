package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/search"
	"github.com/poiesic/hybridrag/storage"
)

// IndexKeyPrefix prefixes the blob key of every session index.
const IndexKeyPrefix = "session:"

// ErrAIProviderRequired is returned when a registry is created without a provider.
var ErrAIProviderRequired = errors.New("AI provider is required")

// IndexKey returns the blob key a session's index is saved under.
func IndexKey(id string) string {
	return IndexKeyPrefix + id
}

// Info summarizes a live session.
type Info struct {
	ID      string
	Created time.Time
	Turns   int
	Chunks  int
}

// Registry owns a set of independent sessions, each with its own index.
type Registry struct {
	provider    ai.AIProvider
	store       storage.BlobStore
	indexOpts   []search.Option
	sessionOpts []Option
	base        *slog.Logger
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry) error

// WithStore persists session indexes in store.
func WithStore(store storage.BlobStore) RegistryOption {
	return func(r *Registry) error {
		r.store = store
		return nil
	}
}

// WithIndexOptions adds options applied to every session index.
func WithIndexOptions(opts ...search.Option) RegistryOption {
	return func(r *Registry) error {
		r.indexOpts = append(r.indexOpts, opts...)
		return nil
	}
}

// WithSessionOptions adds options applied to every session.
func WithSessionOptions(opts ...Option) RegistryOption {
	return func(r *Registry) error {
		r.sessionOpts = append(r.sessionOpts, opts...)
		return nil
	}
}

// WithRegistryLogger sets the logger. A nil logger keeps the default.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) error {
		if logger != nil {
			r.base = logger
		}
		return nil
	}
}

// NewRegistry creates an empty registry whose sessions use provider.
func NewRegistry(provider ai.AIProvider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	r := &Registry{
		provider: provider,
		base:     slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.base.With("component", "registry")
	return r, nil
}

func (r *Registry) newSession(id string) (*Session, error) {
	indexOpts := append(slices.Clone(r.indexOpts),
		search.WithKey(IndexKey(id)),
		search.WithLogger(r.base.With("component", "hybrid-index", "session", id)))
	if r.store != nil {
		indexOpts = append(indexOpts, search.WithStore(r.store))
	}
	index, err := search.New(r.provider, indexOpts...)
	if err != nil {
		return nil, err
	}
	sessionOpts := append(slices.Clone(r.sessionOpts), WithID(id), WithLogger(r.base))
	return New(index, r.provider.Generator(), sessionOpts...)
}

// Create starts a new session with an empty index and a random UUID.
func (r *Registry) Create() (*Session, error) {
	s, err := r.newSession(uuid.NewString())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.logger.Info("session created", "session", s.ID())
	return s, nil
}

// Open returns the live session id, or restores its index from the store.
// Memory is not persisted, so a restored session starts a new conversation.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	if s, err := r.Get(id); err == nil {
		return s, nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}

	s, err := r.newSession(id)
	if err != nil {
		return nil, err
	}
	if err := s.Index().Restore(ctx); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
		}
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing, nil
	}
	r.sessions[id] = s
	r.logger.Info("session restored", "session", id, "chunks", s.Index().Len())
	return s, nil
}

// Get returns the live session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove forgets session id, clearing its memory, index, and query cache.
// Saved state in the store is kept; see Delete.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	s.ClearMemory()
	s.Index().Reset()
	r.logger.Info("session removed", "session", id)
	return nil
}

// Delete removes session id and its saved index. Either one may be absent.
func (r *Registry) Delete(ctx context.Context, id string) error {
	err := r.Remove(id)
	if err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return err
	}
	if r.store == nil {
		return err
	}
	return r.store.DeleteBlob(ctx, IndexKey(id))
}

// List describes the live sessions, oldest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.sessions))
	for id, s := range r.sessions {
		infos = append(infos, Info{
			ID:      id,
			Created: s.Created(),
			Turns:   s.memory.Len(),
			Chunks:  s.Index().Len(),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// Saved returns the ids of sessions with an index in the store.
func (r *Registry) Saved(ctx context.Context) ([]string, error) {
	if r.store == nil {
		return nil, nil
	}
	keys, err := r.store.ListBlobs(ctx, IndexKeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(keys))
	for i, key := range keys {
		ids[i] = strings.TrimPrefix(key, IndexKeyPrefix)
	}
	return ids, nil
}

// Close removes every live session.
func (r *Registry) Close() error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Remove(id)
	}
	return nil
}
