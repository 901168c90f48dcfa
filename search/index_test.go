package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/ai/mock"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parisGazetteer = map[string]string{
	"Paris":        "GPE",
	"France":       "GPE",
	"Eiffel Tower": "FAC",
}

func newTestProvider() *mock.MockProvider {
	return mock.NewMockProviderWithServices(
		mock.NewMockEmbedder(),
		mock.NewGazetteerRecognizer(parisGazetteer),
		mock.NewMockGenerator(),
	).(*mock.MockProvider)
}

func newTestIndex(t *testing.T, opts ...Option) (*Index, *mock.MockProvider) {
	t.Helper()
	provider := newTestProvider()
	ix, err := New(provider, opts...)
	require.NoError(t, err)
	return ix, provider
}

func parisChunks() []core.Chunk {
	return []core.Chunk{
		{Title: "geo.txt - Chunk 1", Content: "Paris is the capital city of France."},
		{Title: "geo.txt - Chunk 2", Content: "The Eiffel Tower was built in Paris for a world fair."},
		{Title: "food.txt - Chunk 1", Content: "Bananas are an excellent source of potassium."},
	}
}

func fiveChunks() []core.Chunk {
	return []core.Chunk{
		{Title: "a", Content: "Go channels let goroutines communicate safely."},
		{Title: "b", Content: "BM25 ranks documents by term frequency and inverse document frequency."},
		{Title: "c", Content: "Paris is the capital of France."},
		{Title: "d", Content: "Knowledge graphs connect entities that co-occur in text."},
		{Title: "e", Content: "Cosine similarity compares embedding vectors."},
	}
}

var graphOnly = core.HybridConfig{UseKnowledgeGraph: true, KnowledgeGraphWeight: 1.0}

func TestNew(t *testing.T) {
	t.Run("nil provider", func(t *testing.T) {
		_, err := New(nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("with options", func(t *testing.T) {
		ix, err := New(mock.NewMockProvider(),
			WithLogger(slog.Default()),
			WithBatchSize(16),
			WithPoolSize(0),
			WithCacheSize(8),
			WithKey("index:test"),
		)
		require.NoError(t, err)
		assert.Equal(t, "index:test", ix.Key())
		assert.Equal(t, 1, ix.poolSize)
		assert.False(t, ix.Loaded())
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := New(mock.NewMockProvider(), WithBatchSize(0))
		assert.Error(t, err)
		_, err = New(mock.NewMockProvider(), WithCacheSize(0))
		assert.Error(t, err)
		_, err = New(mock.NewMockProvider(), WithKey(""))
		assert.Error(t, err)
	})
}

func TestLoad_Validation(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	assert.ErrorIs(t, ix.Load(ctx, nil), core.ErrEmptyCorpus)

	err := ix.Load(ctx, []core.Chunk{{Title: "x", Content: "fine"}, {Title: "y", Content: "   "}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.False(t, ix.Loaded())
}

func TestLoad_BuildsAllStructures(t *testing.T) {
	ix, provider := newTestIndex(t, WithBatchSize(2))
	require.NoError(t, ix.Load(context.Background(), fiveChunks()))

	assert.Equal(t, 5, ix.Len())
	assert.Equal(t, fiveChunks(), ix.Chunks())
	// 5 chunks in batches of 2
	assert.Equal(t, 3, provider.GetMockEmbedder().CallCount())
	assert.Equal(t, 5, provider.GetMockEmbedder().TextCount())
	assert.Equal(t, 5, provider.GetMockRecognizer().CallCount())

	stats := ix.Stats()
	assert.Equal(t, 5, stats.Chunks)
	assert.Equal(t, 2, stats.Entities) // paris, france
	assert.Equal(t, 1, stats.Edges)
}

func TestLoad_SecondLoadIsNoop(t *testing.T) {
	ix, provider := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))

	before := ix.Chunks()
	statsBefore := ix.Stats()
	embedCalls := provider.GetMockEmbedder().CallCount()

	require.NoError(t, ix.Load(ctx, fiveChunks()))

	assert.Equal(t, before, ix.Chunks())
	assert.Equal(t, statsBefore, ix.Stats())
	assert.Equal(t, embedCalls, provider.GetMockEmbedder().CallCount())
}

func TestLoad_FailureLeavesIndexEmpty(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		ix, provider := newTestIndex(t)
		provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding service down")
		}
		err := ix.Load(context.Background(), parisChunks())
		assert.ErrorIs(t, err, core.ErrRetrievalFailed)
		assert.False(t, ix.Loaded())
	})

	t.Run("recognizer failure", func(t *testing.T) {
		ix, provider := newTestIndex(t)
		provider.GetMockRecognizer().RecognizeFunc = func(ctx context.Context, text string) (*ai.Analysis, error) {
			return nil, errors.New("ner down")
		}
		err := ix.Load(context.Background(), parisChunks())
		assert.ErrorIs(t, err, core.ErrRetrievalFailed)
		assert.False(t, ix.Loaded())
		assert.Zero(t, ix.Stats().Entities)
	})
}

func TestAppend(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Append(ctx, parisChunks()[:1]))
	assert.True(t, ix.Loaded())

	require.NoError(t, ix.Append(ctx, parisChunks()[1:]))
	assert.Equal(t, parisChunks(), ix.Chunks())

	stats := ix.Stats()
	assert.Equal(t, 3, stats.Entities)
	assert.Equal(t, 2, stats.Edges)

	keywordOnly := core.HybridConfig{UseKeyword: true, KeywordWeight: 1}
	hits, err := ix.Search(ctx, "bananas potassium", keywordOnly, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].Position)
}

func TestSearch_Validation(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	cfg := core.DefaultHybridConfig()

	_, err := ix.Search(ctx, "paris", cfg, 2)
	assert.ErrorIs(t, err, core.ErrIndexNotReady)

	require.NoError(t, ix.Load(ctx, parisChunks()))

	_, err = ix.Search(ctx, "  ", cfg, 2)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = ix.Search(ctx, "paris", cfg, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	bad := cfg
	bad.SemanticWeight = 0.9
	_, err = ix.Search(ctx, "paris", bad, 2)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestSearch_KnowledgeGraphScenario(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))

	hits, err := ix.Search(ctx, "Tell me about France", graphOnly, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	scores := map[int]float64{}
	for _, h := range hits {
		scores[h.Position] = h.Score
	}
	assert.Equal(t, 0, hits[0].Position)
	assert.Greater(t, scores[0], scores[2])
	// Eiffel Tower chunk is reached through paris
	assert.Greater(t, scores[1], scores[2])
	assert.Zero(t, scores[2])
}

func TestSearch_KnowledgeGraphScores(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))

	hits, err := ix.Search(ctx, "France", graphOnly, 3)
	require.NoError(t, err)

	// chunk 0: france (d=0) + paris (d=1) = 1.5
	// chunk 1: paris (d=1) + eiffel tower (d=2) = 0.5 + 1/3
	raw0, raw1 := 1.5, 0.5+1.0/3.0
	norm := raw0*raw0 + raw1*raw1
	assert.InDelta(t, raw0*raw0/norm, hits[0].Score*hits[0].Score, 1e-9)
	assert.InDelta(t, raw1*raw1/norm, hits[1].Score*hits[1].Score, 1e-9)
}

func TestSearch_TopKSorted(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, fiveChunks()))

	hits, err := ix.Search(ctx, "how does BM25 rank documents", core.DefaultHybridConfig(), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, 1, hits[0].Position)

	all, err := ix.Search(ctx, "how does BM25 rank documents", core.DefaultHybridConfig(), 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	chunks := append(parisChunks(), fiveChunks()...)
	require.NoError(t, ix.Load(ctx, chunks))

	cfg := core.DefaultHybridConfig()
	first, err := ix.Search(ctx, "What is near Paris?", cfg, 4)
	require.NoError(t, err)
	for range 5 {
		again, err := ix.Search(ctx, "What is near Paris?", cfg, 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearch_FailureDoesNotMutate(t *testing.T) {
	ix, provider := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))
	before := ix.Stats()

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("timeout")
	}
	_, err := ix.Search(ctx, "paris", core.DefaultHybridConfig(), 2)
	assert.ErrorIs(t, err, core.ErrRetrievalFailed)
	assert.Equal(t, before, ix.Stats())

	provider.GetMockEmbedder().Reset()
	provider.GetMockRecognizer().RecognizeFunc = func(ctx context.Context, text string) (*ai.Analysis, error) {
		return nil, errors.New("ner down")
	}
	_, err = ix.Search(ctx, "paris", graphOnly, 2)
	assert.ErrorIs(t, err, core.ErrRetrievalFailed)
}

func TestSearch_QueryCache(t *testing.T) {
	ix, provider := newTestIndex(t, WithCacheSize(2))
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))
	embedder := provider.GetMockEmbedder()
	embedder.Reset()

	semantic := core.HybridConfig{UseSemantic: true, SemanticWeight: 1}
	_, err := ix.Search(ctx, "Where is Paris", semantic, 1)
	require.NoError(t, err)
	_, err = ix.Search(ctx, "  where   is PARIS ", semantic, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.CallCount())
	assert.Equal(t, 1, ix.CacheLen())

	for _, q := range []string{"bananas", "eiffel tower", "france"} {
		_, err := ix.Search(ctx, q, semantic, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, ix.CacheLen())
}

func TestSaveRestore_RoundTrip(t *testing.T) {
	store, err := badger.NewMemoryBlobStore()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	ix, _ := newTestIndex(t, WithStore(store), WithKey("index:session-1"))
	require.NoError(t, ix.Load(ctx, append(parisChunks(), fiveChunks()...)))

	cfg := core.DefaultHybridConfig()
	want, err := ix.Search(ctx, "Which monument is in Paris?", cfg, 3)
	require.NoError(t, err)
	require.NoError(t, ix.Save(ctx))

	restored, provider := newTestIndex(t, WithStore(store), WithKey("index:session-1"))
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, ix.Chunks(), restored.Chunks())
	assert.Equal(t, ix.Stats(), restored.Stats())

	got, err := restored.Search(ctx, "Which monument is in Paris?", cfg, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	// query embedding came from the restored cache
	assert.Zero(t, provider.GetMockEmbedder().CallCount())
}

func TestLoad_PersistsToStore(t *testing.T) {
	store, err := badger.NewMemoryBlobStore()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	ix, _ := newTestIndex(t, WithStore(store))
	require.NoError(t, ix.Load(ctx, parisChunks()))

	data, err := store.GetBlob(ctx, DefaultKey)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRestore_NotFound(t *testing.T) {
	ctx := context.Background()

	ix, _ := newTestIndex(t)
	assert.ErrorIs(t, ix.Restore(ctx), core.ErrNotFound)
	assert.ErrorIs(t, ix.Save(ctx), ErrStoreRequired)

	store, err := badger.NewMemoryBlobStore()
	require.NoError(t, err)
	defer store.Close()

	withStore, _ := newTestIndex(t, WithStore(store))
	assert.ErrorIs(t, withStore.Restore(ctx), core.ErrNotFound)
}

func TestReset(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))
	_, err := ix.Search(ctx, "paris", core.DefaultHybridConfig(), 1)
	require.NoError(t, err)

	ix.Reset()
	assert.False(t, ix.Loaded())
	assert.Zero(t, ix.CacheLen())
	assert.Zero(t, ix.Stats().Entities)
}

func TestReembed(t *testing.T) {
	ctx := context.Background()
	store, err := badger.NewMemoryBlobStore()
	require.NoError(t, err)
	defer store.Close()

	ix, provider := newTestIndex(t, WithStore(store), WithBatchSize(2))
	assert.ErrorIs(t, ix.Reembed(ctx), core.ErrIndexNotReady)

	require.NoError(t, ix.Load(ctx, parisChunks()))
	_, err = ix.Search(ctx, "paris", core.DefaultHybridConfig(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, ix.CacheLen())
	stats := ix.Stats()

	embedder := provider.GetMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	}
	require.NoError(t, ix.Reembed(ctx))

	assert.Zero(t, ix.CacheLen())
	assert.Equal(t, stats.Entities, ix.Stats().Entities)
	for _, v := range ix.current().vectors {
		assert.Equal(t, []float32{1, 0, 0}, v)
	}

	restored, _ := newTestIndex(t, WithStore(store))
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, []float32{1, 0, 0}, restored.current().vectors[2], "re-embedding is persisted")

	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("model not found")
	}
	assert.ErrorIs(t, ix.Reembed(ctx), core.ErrRetrievalFailed)
	assert.Equal(t, []float32{1, 0, 0}, ix.current().vectors[0], "failure keeps the old vectors")
}

type recordingMonitor struct {
	noopMonitor
	started  bool
	cached   []bool
	entities []string
	finished []core.ScoredChunk
}

func (m *recordingMonitor) Start(string, core.HybridConfig)          { m.started = true }
func (m *recordingMonitor) QueryEmbedded(cached bool)                { m.cached = append(m.cached, cached) }
func (m *recordingMonitor) AfterQueryEntityExtraction(e []string)    { m.entities = e }
func (m *recordingMonitor) Finish(results []core.ScoredChunk)        { m.finished = results }

func TestSearchWithMonitor(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.Load(ctx, parisChunks()))

	m := &recordingMonitor{}
	for range 2 {
		_, err := ix.SearchWithMonitor(ctx, "Is the Eiffel Tower in Paris?", core.DefaultHybridConfig(), 2, m)
		require.NoError(t, err)
	}
	assert.True(t, m.started)
	assert.Equal(t, []bool{false, true}, m.cached)
	assert.Equal(t, []string{"eiffel tower", "paris"}, m.entities)
	assert.Len(t, m.finished, 2)
}
