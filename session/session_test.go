package session

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/ai/mock"
	"github.com/poiesic/hybridrag/chunker"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/planner"
	"github.com/poiesic/hybridrag/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parisChunks() []core.Chunk {
	return []core.Chunk{
		{Title: "geo.txt - Chunk 1", Content: "Paris is the capital city of France."},
		{Title: "geo.txt - Chunk 2", Content: "The Eiffel Tower was built in Paris for a world fair."},
		{Title: "food.txt - Chunk 1", Content: "Bananas are an excellent source of potassium."},
	}
}

// keywordSettings makes retrieval depend only on BM25 so tests can reason
// about which chunks match.
func keywordSettings() core.Settings {
	s := core.DefaultSettings()
	s.Hybrid = core.HybridConfig{UseKeyword: true, KeywordWeight: 1.0}
	return s
}

func subQueries(queries ...string) string {
	reply := "<subqueries>\n"
	for _, q := range queries {
		reply += "type: detail\nimportance: 4\nquery: " + q + "\n\n"
	}
	return reply + "</subqueries>"
}

type fixture struct {
	session   *Session
	index     *search.Index
	planGen   *mock.MockGenerator
	answerGen *mock.MockGenerator
}

func newFixture(t *testing.T, planReplies []string, opts ...Option) *fixture {
	t.Helper()
	provider := mock.NewMockProviderWithServices(
		mock.NewMockEmbedder(),
		mock.NewGazetteerRecognizer(map[string]string{"Paris": "GPE", "France": "GPE", "Eiffel Tower": "FAC"}),
		mock.NewMockGenerator(),
	)
	index, err := search.New(provider)
	require.NoError(t, err)
	require.NoError(t, index.Load(context.Background(), parisChunks()))

	planGen := mock.NewScriptedGenerator(planReplies...)
	p, err := planner.New(planGen)
	require.NoError(t, err)

	answerGen := mock.NewScriptedGenerator("Paris is the capital of France.")
	opts = append([]Option{WithPlanner(p), WithSettings(keywordSettings())}, opts...)
	s, err := New(index, answerGen, opts...)
	require.NoError(t, err)

	return &fixture{session: s, index: index, planGen: planGen, answerGen: answerGen}
}

func TestNew(t *testing.T) {
	index, err := search.New(mock.NewMockProvider())
	require.NoError(t, err)

	_, err = New(nil, mock.NewMockGenerator())
	assert.Equal(t, ErrIndexRequired, err)

	_, err = New(index, nil)
	assert.Equal(t, ErrGeneratorRequired, err)

	bad := core.DefaultSettings()
	bad.Hybrid.SemanticWeight = 0.9
	_, err = New(index, mock.NewMockGenerator(), WithSettings(bad))
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = New(index, mock.NewMockGenerator(), WithID(" "))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	s, err := New(index, mock.NewMockGenerator(), WithLogger(nil))
	require.NoError(t, err)
	id, err := uuid.Parse(s.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, core.DefaultSettings(), s.Settings())
	assert.Same(t, index, s.Index())
	assert.False(t, s.Created().IsZero())
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers from deduplicated context", func(t *testing.T) {
		f := newFixture(t, []string{subQueries("paris capital", "eiffel tower paris")})

		answer, err := f.session.Ask(ctx, "What is the capital of France?")
		require.NoError(t, err)

		assert.Equal(t, "Paris is the capital of France.", answer.Answer)
		assert.Equal(t, []string{"paris capital", "eiffel tower paris"}, answer.Queries)
		require.Len(t, answer.Sources, 2)
		assert.Equal(t, "geo.txt - Chunk 1", answer.Sources[0].Title)
		assert.Equal(t, "geo.txt - Chunk 2", answer.Sources[1].Title)
		assert.Greater(t, answer.Sources[0].Similarity, 0.0)

		call, ok := f.answerGen.LastCall()
		require.True(t, ok)
		require.Len(t, call.Messages, 3)
		assert.Equal(t, ai.RoleSystem, call.Messages[0].Role)
		assert.Contains(t, call.Messages[0].Content, "- paris capital")
		assert.Contains(t, call.Messages[0].Content, "- eiffel tower paris")
		assert.Contains(t, call.Messages[1].Content, "Document 1 (geo.txt - Chunk 1):\nParis is the capital city of France.")
		assert.Contains(t, call.Messages[1].Content, "Document 2 (geo.txt - Chunk 2):")
		assert.NotContains(t, call.Messages[1].Content, "Document 3")
		assert.Equal(t, ai.UserMessage("What is the capital of France?"), call.Messages[2])
		assert.Equal(t, 0.7, call.Options.Temperature)
		assert.Equal(t, 2000, call.Options.MaxTokens)

		history := f.session.History()
		require.Len(t, history, 2)
		assert.Equal(t, core.RoleUser, history[0].Role)
		assert.Equal(t, "What is the capital of France?", history[0].Content)
		assert.Equal(t, core.RoleAssistant, history[1].Role)
		assert.Equal(t, "Paris is the capital of France.", history[1].Content)
	})

	t.Run("zero documents skips generation", func(t *testing.T) {
		f := newFixture(t, []string{subQueries("zebra migration")})

		answer, err := f.session.Ask(ctx, "How far do zebras migrate?")
		require.NoError(t, err)
		assert.Equal(t, core.NoInformationAnswer, answer.Answer)
		assert.NotNil(t, answer.Sources)
		assert.Empty(t, answer.Sources)
		assert.Equal(t, []string{"zebra migration"}, answer.Queries)
		assert.Equal(t, 0, f.answerGen.CallCount())
		assert.Empty(t, f.session.History())
	})

	t.Run("duplicate queries yield each chunk once", func(t *testing.T) {
		f := newFixture(t, []string{subQueries("eiffel tower", "eiffel tower")})

		first, err := f.session.Ask(ctx, "Tell me about the Eiffel Tower")
		require.NoError(t, err)
		titles := make(map[string]int)
		for _, src := range first.Sources {
			titles[src.Title]++
		}
		for title, n := range titles {
			assert.Equal(t, 1, n, title)
		}
	})

	t.Run("malformed decomposition searches the question", func(t *testing.T) {
		f := newFixture(t, []string{"You should search for the capital of France."})

		answer, err := f.session.Ask(ctx, "capital of France")
		require.NoError(t, err)
		assert.Equal(t, []string{"capital of France"}, answer.Queries)
		assert.NotEmpty(t, answer.Sources)
	})

	t.Run("follow-up is rewritten with memory", func(t *testing.T) {
		f := newFixture(t, []string{
			subQueries("paris capital"),
			"<rewritten>When was the Eiffel Tower in Paris built?</rewritten>",
			subQueries("eiffel tower built"),
		})

		_, err := f.session.Ask(ctx, "What is the capital of France?")
		require.NoError(t, err)
		assert.Equal(t, 1, f.planGen.CallCount(), "no rewrite without history")

		answer, err := f.session.Ask(ctx, "When was its tower built?")
		require.NoError(t, err)
		assert.Equal(t, 3, f.planGen.CallCount())
		assert.Equal(t, []string{"eiffel tower built"}, answer.Queries)

		decompose := f.planGen.Calls()[2]
		assert.Equal(t, "When was the Eiffel Tower in Paris built?", decompose.Messages[1].Content)

		call, _ := f.answerGen.LastCall()
		assert.Equal(t, "When was its tower built?", call.Messages[2].Content, "the original question is answered")
		assert.Len(t, f.session.History(), 4)
	})

	t.Run("short query mode", func(t *testing.T) {
		f := newFixture(t, []string{"<phrases>\nparis capital\nfrance\n</phrases>"}, WithShortQueries(true))

		answer, err := f.session.Ask(ctx, "What is the capital of France?")
		require.NoError(t, err)
		assert.Equal(t, []string{"paris capital", "france"}, answer.Queries)
	})

	t.Run("generation failure leaves memory alone", func(t *testing.T) {
		f := newFixture(t, []string{subQueries("paris capital")})
		f.answerGen.GenerateFunc = func(context.Context, []ai.Message, ai.GenerateOptions) (string, error) {
			return "", errors.New("model overloaded")
		}

		_, err := f.session.Ask(ctx, "What is the capital of France?")
		assert.ErrorIs(t, err, core.ErrGenerationFailed)
		assert.Empty(t, f.session.History())
	})

	t.Run("planner failure", func(t *testing.T) {
		f := newFixture(t, nil)
		f.planGen.GenerateFunc = func(context.Context, []ai.Message, ai.GenerateOptions) (string, error) {
			return "", errors.New("timeout")
		}

		_, err := f.session.Ask(ctx, "What is the capital of France?")
		assert.ErrorIs(t, err, core.ErrGenerationFailed)
		assert.Equal(t, 0, f.answerGen.CallCount())
	})

	t.Run("empty question", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.session.Ask(ctx, " \n")
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})

	t.Run("index not loaded", func(t *testing.T) {
		index, err := search.New(mock.NewMockProvider())
		require.NoError(t, err)
		s, err := New(index, mock.NewMockGenerator())
		require.NoError(t, err)

		_, err = s.Ask(ctx, "anything")
		assert.ErrorIs(t, err, core.ErrIndexNotReady)
	})
}

func TestSettings(t *testing.T) {
	f := newFixture(t, nil)
	before := f.session.Settings()

	bad := before
	bad.Hybrid.KeywordWeight = 0.5
	assert.ErrorIs(t, f.session.UpdateSettings(bad), core.ErrConfig)
	assert.Equal(t, before, f.session.Settings())

	nan := before
	nan.Hybrid.SemanticWeight = math.NaN()
	assert.ErrorIs(t, f.session.UpdateSettings(nan), core.ErrConfig)
	assert.Equal(t, before, f.session.Settings())

	good := core.DefaultSettings()
	good.SubQueryK = 3
	require.NoError(t, f.session.UpdateSettings(good))
	assert.Equal(t, good, f.session.Settings())

	assert.ErrorIs(t, f.session.SetTemperature(1.2), core.ErrConfig)
	assert.Equal(t, 0.7, f.session.Settings().Temperature)
	require.NoError(t, f.session.SetTemperature(0.1))
	assert.Equal(t, 0.1, f.session.Settings().Temperature)
}

func TestClearMemory(t *testing.T) {
	f := newFixture(t, []string{subQueries("paris capital")})

	_, err := f.session.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Len(t, f.session.History(), 2)

	f.session.ClearMemory()
	assert.Empty(t, f.session.History())
}

func TestIngest(t *testing.T) {
	c, err := chunker.New(chunker.WithTokenizer(chunker.NewWordTokenizer()), chunker.WithChunkSize(50), chunker.WithOverlap(5))
	require.NoError(t, err)

	f := newFixture(t, nil, WithChunker(c))
	before := f.index.Len()

	n, err := f.session.Ingest(context.Background(), chunker.File{Name: "rome.txt", Data: []byte("Rome is the capital of Italy.")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before+1, f.index.Len())
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	assert.Nil(t, m.Last(2))

	m.Append(core.RoleUser, "one")
	m.Append(core.RoleAssistant, "two")
	m.Append(core.RoleUser, "three")

	last := m.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "two", last[0].Content)
	assert.Equal(t, "three", last[1].Content)
	assert.Len(t, m.Last(10), 3)
	assert.Nil(t, m.Last(0))

	last[0].Content = "changed"
	assert.Equal(t, "two", m.Turns()[1].Content, "returned turns are copies")

	m.Clear()
	assert.Zero(t, m.Len())
}
