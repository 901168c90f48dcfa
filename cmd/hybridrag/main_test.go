package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/ai/mock"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/search"
	"github.com/poiesic/hybridrag/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"hybridrag"}, args...))
	return out.String(), err
}

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func TestFlagDefaults(t *testing.T) {
	app := newApp()

	tests := []struct {
		name  string
		value string
		env   string
	}{
		{"log-level", "info", "HYBRIDRAG_LOG_LEVEL"},
		{"db", "hybridrag.db", "HYBRIDRAG_DB"},
		{"provider", "openai", "HYBRIDRAG_PROVIDER"},
		{"host", "http://localhost:11434/v1", "HYBRIDRAG_HOST"},
		{"embedding-model", "nomic-embed-text", "HYBRIDRAG_EMBEDDING_MODEL"},
		{"generator-model", "qwen2.5:7b", "HYBRIDRAG_GENERATOR_MODEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := findStringFlag(app.Flags, tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.value, f.Value)
			assert.Contains(t, f.EnvVars, tt.env)
		})
	}

	apiKey := findStringFlag(app.Flags, "api-key")
	require.NotNil(t, apiKey)
	assert.Contains(t, apiKey.EnvVars, "OPENAI_API_KEY")
}

func TestSessionFlagRequired(t *testing.T) {
	for _, cmd := range []string{"search", "ask", "chat"} {
		t.Run(cmd, func(t *testing.T) {
			_, err := runApp(t, cmd, "question")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "session")
		})
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runApp(t, "--log-level", "loud", "chunk", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestChunkCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("The Eiffel Tower is in Paris."), 0o644))

	out, err := runApp(t, "chunk", path)
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt: 1 chunks")
	assert.Contains(t, out, "notes.txt - Chunk 1")
	assert.Contains(t, out, "The Eiffel Tower is in Paris.")

	_, err = runApp(t, "chunk", filepath.Join(dir, "deck.pptx"))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = runApp(t, "chunk")
	assert.Error(t, err)
}

func TestSessionsCommandEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "db")
	out, err := runApp(t, "--db", db, "--provider", "ollama", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved sessions.")
}

func TestLoadFileConfig(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := loadFileConfig("")
		require.NoError(t, err)
		assert.Equal(t, defaultFileConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hybridrag.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
chunk_size = 200
short_queries = true

[session]
temperature = 0.2

[session.hybrid]
use_semantic = true
use_keyword = true
use_knowledge_graph = false
semantic_weight = 0.5
keyword_weight = 0.5
knowledge_graph_weight = 0.0
`), 0o644))

		cfg, err := loadFileConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 200, cfg.ChunkSize)
		assert.Equal(t, 50, cfg.Overlap, "unset keys keep defaults")
		assert.True(t, cfg.ShortQueries)
		assert.Equal(t, 0.2, cfg.Session.Temperature)
		assert.Equal(t, 2000, cfg.Session.MaxTokens)
		assert.False(t, cfg.Session.Hybrid.UseKnowledgeGraph)
		assert.Equal(t, 0.5, cfg.Session.Hybrid.KeywordWeight)
	})

	t.Run("invalid weights", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[session.hybrid]\nsemantic_weight = 0.9\n"), 0o644))

		_, err := loadFileConfig(path)
		assert.ErrorIs(t, err, core.ErrConfig)
	})

	t.Run("nan weight", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nan.toml")
		require.NoError(t, os.WriteFile(path, []byte("[session.hybrid]\nsemantic_weight = nan\n"), 0o644))

		_, err := loadFileConfig(path)
		assert.ErrorIs(t, err, core.ErrConfig)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.toml")
		require.NoError(t, os.WriteFile(path, []byte("chunk_size = = 3"), 0o644))

		_, err := loadFileConfig(path)
		assert.ErrorIs(t, err, core.ErrConfig)
	})
}

func TestAIConfigFromFlags(t *testing.T) {
	var got *ai.Config
	app := newApp()
	app.Commands = []*cli.Command{{
		Name: "probe",
		Action: func(c *cli.Context) error {
			got = aiConfigFromFlags(c)
			return nil
		},
	}}
	require.NoError(t, app.Run([]string{"hybridrag", "--host", "http://gpu:8000/v1", "--api-key", "secret", "probe"}))

	require.NotNil(t, got)
	assert.Equal(t, "http://gpu:8000/v1", got.GeneratorHost)
	assert.Equal(t, "http://gpu:8000/v1", got.EmbeddingHost)
	assert.Equal(t, "secret", got.APIKey)
}

func TestChatDirective(t *testing.T) {
	index, err := search.New(mock.NewMockProvider())
	require.NoError(t, err)
	s, err := session.New(index, mock.NewMockGenerator())
	require.NoError(t, err)

	var out bytes.Buffer
	assert.False(t, chatDirective(&out, s, "/temperature 0.3"))
	assert.Equal(t, 0.3, s.Settings().Temperature)

	out.Reset()
	assert.False(t, chatDirective(&out, s, "/temperature 3"))
	assert.Contains(t, out.String(), "error")
	assert.Equal(t, 0.3, s.Settings().Temperature)

	out.Reset()
	assert.False(t, chatDirective(&out, s, "/dance"))
	assert.Contains(t, out.String(), "unknown command")

	assert.True(t, chatDirective(&out, s, "/quit"))
}

func TestPrintAnswer(t *testing.T) {
	var out bytes.Buffer
	printAnswer(&out, &core.Answer{
		Answer:  "Paris.",
		Sources: []core.Source{{Title: "geo.txt - Chunk 1", Similarity: 0.91234}},
		Queries: []string{"capital of france"},
	})
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Paris.\n"))
	assert.Contains(t, text, "Searched: capital of france")
	assert.Contains(t, text, "- geo.txt - Chunk 1 (0.912)")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\tc", 10))
	assert.Equal(t, "abc...", oneLine("abcdef", 3))
}

func TestReembedCommand(t *testing.T) {
	app := newApp()
	var cmd *cli.Command
	for _, c := range app.Commands {
		if c.Name == "reembed" {
			cmd = c
		}
	}
	require.NotNil(t, cmd)

	for _, flag := range cmd.Flags {
		switch f := flag.(type) {
		case *cli.IntFlag:
			assert.Equal(t, 3, f.Value)
		case *cli.DurationFlag:
			assert.Equal(t, time.Second, f.Value)
		}
	}

	db := filepath.Join(t.TempDir(), "db")
	out, err := runApp(t, "--db", db, "--provider", "ollama", "reembed")
	require.NoError(t, err)
	assert.Contains(t, out, "Re-embedded 0 sessions")

	_, err = runApp(t, "--db", db, "--provider", "ollama", "reembed", "--max-retries", "0")
	assert.Error(t, err)
}
