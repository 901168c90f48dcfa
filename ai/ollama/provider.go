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
	"log/slog"

	"github.com/poiesic/hybridrag/ai"
	"github.com/poiesic/hybridrag/ai/ner"
)

// Provider implements ai.AIProvider against a native Ollama server.
type Provider struct {
	embedder   *Embedder
	generator  *Generator
	recognizer *ner.Recognizer
	logger     *slog.Logger
}

// NewProvider creates a provider that talks to Ollama's native API.
// Hosts are used without the /v1 suffix.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config, config.GeneratorModel)
	if err != nil {
		return nil, err
	}
	recognizerGen := generator
	if config.RecognizerModel != config.GeneratorModel {
		if recognizerGen, err = newGenerator(config, config.RecognizerModel); err != nil {
			return nil, err
		}
	}
	recognizer, err := ner.NewRecognizer(recognizerGen)
	if err != nil {
		return nil, err
	}

	return &Provider{
		embedder:   embedder,
		generator:  generator,
		recognizer: recognizer,
		logger:     slog.Default().With("component", "ollama-provider"),
	}, nil
}

func (p *Provider) Embedder() ai.Embedder                 { return p.embedder }
func (p *Provider) EntityRecognizer() ai.EntityRecognizer { return p.recognizer }
func (p *Provider) Generator() ai.Generator               { return p.generator }

// Close is a no-op; the HTTP client holds no per-provider resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}
