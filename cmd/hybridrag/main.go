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

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const envPrefix = "HYBRIDRAG_"

func env(name string) []string {
	return []string{envPrefix + name}
}

func main() {
	// Flags read their EnvVars while parsing, so .env has to be loaded first.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	sessionFlag := &cli.StringFlag{
		Name:     "session",
		Aliases:  []string{"s"},
		Usage:    "Session id",
		EnvVars:  env("SESSION"),
		Required: true,
	}

	return &cli.App{
		Name:  "hybridrag",
		Usage: "Hybrid retrieval and conversational question answering over documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: env("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "hybridrag.db",
				EnvVars: env("DB"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Optional TOML settings file",
				EnvVars: env("CONFIG"),
			},
			&cli.StringFlag{
				Name:    "provider",
				Usage:   "AI provider (openai, ollama)",
				Value:   "openai",
				EnvVars: env("PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "Host URL for every AI service",
				Value:   "http://localhost:11434/v1",
				EnvVars: env("HOST"),
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL (defaults to --host)",
				EnvVars: env("EMBEDDING_HOST"),
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "nomic-embed-text",
				EnvVars: env("EMBEDDING_MODEL"),
			},
			&cli.StringFlag{
				Name:    "generator-model",
				Usage:   "Model that plans queries and answers questions",
				Value:   "qwen2.5:7b",
				EnvVars: env("GENERATOR_MODEL"),
			},
			&cli.StringFlag{
				Name:    "recognizer-model",
				Usage:   "Model for entity recognition (defaults to --generator-model)",
				EnvVars: env("RECOGNIZER_MODEL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent to OpenAI-compatible services",
				EnvVars: append(env("API_KEY"), "OPENAI_API_KEY"),
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "chunk",
				Usage:     "Split files into chunks and print them",
				ArgsUsage: "FILE...",
				Action:    chunkCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Chunk and index files into a session",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Existing session id (a new session is created when empty)",
						EnvVars: env("SESSION"),
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Ignore the files if the session already has documents",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run one hybrid search against a session index",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					sessionFlag,
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"n"},
						Usage:   "Number of results",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Print per-signal scores",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer one question from a session",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags:     []cli.Flag{sessionFlag},
			},
			{
				Name:   "chat",
				Usage:  "Interactive question answering with conversational memory",
				Action: chatCommand,
				Flags:  []cli.Flag{sessionFlag},
			},
			{
				Name:   "sessions",
				Usage:  "List saved sessions",
				Action: sessionsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "delete",
						Usage: "Delete the saved session with this id",
					},
				},
			},
			{
				Name:      "reembed",
				Usage:     "Recompute chunk embeddings for saved sessions",
				ArgsUsage: "[session-id...]",
				Action:    reembedCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Session to re-embed (repeatable). Defaults to every saved session",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Value: 3,
						Usage: "Attempts per embedding request",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Value: time.Second,
						Usage: "Base delay between attempts, doubled after each failure",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
