package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/poiesic/hybridrag"
	"github.com/poiesic/hybridrag/chunker"
	"github.com/poiesic/hybridrag/core"
	"github.com/poiesic/hybridrag/ingestion"
	"github.com/poiesic/hybridrag/reembed"
	"github.com/poiesic/hybridrag/search"
	"github.com/poiesic/hybridrag/session"
	"github.com/urfave/cli/v2"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	title   = color.New(color.FgYellow)
	success = color.New(color.FgGreen)
	faint   = color.New(color.Faint)
	warning = color.New(color.FgRed)
)

func openEngine(c *cli.Context, cfg fileConfig, extra ...session.Option) (*hybridrag.Engine, error) {
	return openEngineWith(c, cfg, hybridrag.WithAIConfig(aiConfigFromFlags(c)), extra...)
}

func openEngineWith(c *cli.Context, cfg fileConfig, providerOpt hybridrag.EngineOption, extra ...session.Option) (*hybridrag.Engine, error) {
	ch, err := newChunker(cfg)
	if err != nil {
		return nil, err
	}
	opts := append([]session.Option{
		session.WithChunker(ch),
		session.WithSettings(cfg.Session),
		session.WithShortQueries(cfg.ShortQueries),
	}, extra...)

	return hybridrag.Open(c.String("db"), providerOpt, hybridrag.WithSessionOptions(opts...))
}

func readFiles(paths []string) ([]chunker.File, error) {
	if len(paths) == 0 {
		return nil, errors.New("at least one file is required")
	}
	files := make([]chunker.File, 0, len(paths))
	for _, path := range paths {
		if !chunker.Supported(path) {
			return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, path)
		}
		file, err := chunker.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func chunkCommand(c *cli.Context) error {
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	files, err := readFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	ch, err := newChunker(cfg)
	if err != nil {
		return err
	}

	w := c.App.Writer
	for _, file := range files {
		chunks, err := ch.Process(file)
		if err != nil {
			return err
		}
		heading.Fprintf(w, "%s: %d chunks\n", file.Name, len(chunks))
		for _, chunk := range chunks {
			title.Fprintln(w, chunk.Title)
			fmt.Fprintf(w, "%s\n\n", chunk.Content)
		}
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	files, err := readFiles(c.Args().Slice())
	if err != nil {
		return err
	}

	e, err := openEngine(c, cfg, session.WithIngestOptions(
		ingestion.WithAppend(!c.Bool("replace")),
		ingestion.WithProgress(c.App.ErrWriter),
	))
	if err != nil {
		return err
	}
	defer e.Close()

	var s *session.Session
	if id := c.String("session"); id != "" {
		s, err = e.Session(c.Context, id)
	} else {
		s, err = e.NewSession()
	}
	if err != nil {
		return err
	}

	n, err := s.Ingest(c.Context, files...)
	if err != nil {
		return err
	}
	success.Fprintf(c.App.Writer, "Session %s: indexed %d chunks (%d total)\n", s.ID(), n, s.Index().Len())
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a query is required")
	}
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	e, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.Session(c.Context, c.String("session"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	var monitor search.SearchMonitor
	if c.Bool("explain") {
		monitor = newExplainMonitor(w, s.Index().Chunks())
	}
	results, err := s.Index().SearchWithMonitor(c.Context, query, s.Settings().Hybrid, c.Int("k"), monitor)
	if err != nil {
		return err
	}
	printResults(w, results)
	return nil
}

func printResults(w io.Writer, results []core.ScoredChunk) {
	for i, r := range results {
		title.Fprintf(w, "%d. [%.4f] %s\n", i+1, r.Score, r.Chunk.Title)
		fmt.Fprintf(w, "   %s\n", oneLine(r.Chunk.Content, 160))
	}
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	e, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.Session(c.Context, c.String("session"))
	if err != nil {
		return err
	}
	answer, err := s.Ask(c.Context, question)
	if err != nil {
		return err
	}
	printAnswer(c.App.Writer, answer)
	return nil
}

func printAnswer(w io.Writer, answer *core.Answer) {
	fmt.Fprintln(w, answer.Answer)
	if len(answer.Queries) > 0 {
		faint.Fprintf(w, "\nSearched: %s\n", strings.Join(answer.Queries, "; "))
	}
	if len(answer.Sources) == 0 {
		return
	}
	heading.Fprintln(w, "\nSources:")
	for _, src := range answer.Sources {
		fmt.Fprintf(w, "- %s (%.3f)\n", src.Title, src.Similarity)
	}
}

const chatHelp = `Commands:
  /history          show the conversation
  /clear            forget the conversation
  /temperature N    set the answer temperature (0 to 1)
  /quit             leave`

func chatCommand(c *cli.Context) error {
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	e, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.Session(c.Context, c.String("session"))
	if err != nil {
		return err
	}

	reader := c.App.Reader
	if reader == nil {
		reader = os.Stdin
	}
	w := c.App.Writer
	heading.Fprintf(w, "Chatting with session %s (%d chunks). Type /help for commands.\n", s.ID(), s.Index().Len())

	scanner := bufio.NewScanner(reader)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := chatDirective(w, s, line); quit {
				return nil
			}
			continue
		}

		answer, err := s.Ask(c.Context, line)
		if err != nil {
			if c.Context.Err() != nil {
				return err
			}
			warning.Fprintf(w, "error: %v\n", err)
			continue
		}
		printAnswer(w, answer)
		fmt.Fprintln(w)
	}
}

// chatDirective runs a slash command and reports whether the chat should end.
func chatDirective(w io.Writer, s *session.Session, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(w, chatHelp)
	case "/clear":
		s.ClearMemory()
		success.Fprintln(w, "Memory cleared.")
	case "/history":
		for _, turn := range s.History() {
			title.Fprintf(w, "%s: ", turn.Role)
			fmt.Fprintln(w, turn.Content)
		}
	case "/temperature":
		if len(fields) != 2 {
			warning.Fprintln(w, "usage: /temperature N")
			break
		}
		t, err := strconv.ParseFloat(fields[1], 64)
		if err == nil {
			err = s.SetTemperature(t)
		}
		if err != nil {
			warning.Fprintf(w, "error: %v\n", err)
			break
		}
		success.Fprintf(w, "Temperature set to %.2f.\n", t)
	default:
		warning.Fprintf(w, "unknown command %s\n", fields[0])
	}
	return false
}

func sessionsCommand(c *cli.Context) error {
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	e, err := openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	w := c.App.Writer
	if id := c.String("delete"); id != "" {
		if err := e.Sessions().Delete(c.Context, id); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
			return err
		}
		success.Fprintf(w, "Deleted session %s\n", id)
		return nil
	}

	ids, err := e.Sessions().Saved(c.Context)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		faint.Fprintln(w, "No saved sessions.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	retry := &reembed.Config{
		MaxRetries: c.Int("max-retries"),
		RetryDelay: c.Duration("retry-delay"),
	}
	if err := retry.Validate(); err != nil {
		return err
	}
	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	provider, err := hybridrag.NewProvider(aiConfigFromFlags(c))
	if err != nil {
		return err
	}
	e, err := openEngineWith(c, cfg, hybridrag.WithProvider(reembed.WithRetry(provider, retry)))
	if err != nil {
		_ = provider.Close()
		return err
	}
	defer e.Close()

	r, err := reembed.NewReembedder(e.Sessions(), c.App.ErrWriter)
	if err != nil {
		return err
	}
	ids := append(c.StringSlice("session"), c.Args().Slice()...)
	n, err := r.Run(c.Context, ids...)
	if err != nil {
		return err
	}
	success.Fprintf(c.App.Writer, "Re-embedded %d sessions\n", n)
	return nil
}

func oneLine(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}
