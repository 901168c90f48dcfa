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

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/poiesic/hybridrag/ai"
)

// Generator implements ai.Generator using Ollama's native chat endpoint.
type Generator struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

func newGenerator(config *ai.Config, model string) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newClient(config.GeneratorHost)
	if err != nil {
		return nil, err
	}
	return &Generator{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "ollama-generator", "model", model),
	}, nil
}

// NewGenerator creates a generator for config.GeneratorModel.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config, config.GeneratorModel)
}

// Generate runs a non-streaming chat request and returns the assistant reply.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error) {
	req := chatRequest(g.model, messages, opts)

	var reply strings.Builder
	err := g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		_, err := reply.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		g.logger.Error("chat request failed", "err", err)
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	return reply.String(), nil
}

// jsonFormat asks Ollama to constrain the reply to valid JSON.
var jsonFormat = json.RawMessage(`"json"`)

func chatRequest(model string, messages []ai.Message, opts ai.GenerateOptions) *api.ChatRequest {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: toAPIMessages(messages),
		Stream:   &stream,
		Options:  chatOptions(opts),
	}
	if opts.JSONMode {
		req.Format = jsonFormat
	}
	return req
}

func chatOptions(opts ai.GenerateOptions) map[string]any {
	options := map[string]any{
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	return options
}

func toAPIMessages(messages []ai.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
