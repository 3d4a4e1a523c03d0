// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package google

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

const name = "google"

// Config holds Google provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	HTTPClient *http.Client
}

// Provider implements provider.Provider using the Google Gemini API.
type Provider struct {
	client *genai.Client
	config Config
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new Google provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, solerr.New(solerr.CodeProviderRequestInvalid,
			"google: missing api_key in config", solerr.FieldProvider(name))
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, solerr.Wrapf(err, solerr.CodeProviderUpstreamFailure, "google: creating client")
	}

	return &Provider{
		client: client,
		config: cfg,
		health: provider.MustHealthTracker(provider.DefaultHealthCooldown),
	}, nil
}

func (p *Provider) Name() string { return name }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.IsHealthy()
}

func (p *Provider) HealthMetrics() provider.HealthMetrics {
	return p.health.HealthMetrics()
}

// knownModels returns the hardcoded set of known Gemini models.
func knownModels() []provider.ModelInfo {
	long := provider.ModelCapabilities{
		SupportsStreaming: true,
		SupportsJSONMode:  true,
		MaxContextTokens:  1048576,
		MaxOutputTokens:   65536,
	}
	return []provider.ModelInfo{
		{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: name, Capabilities: long},
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: name, Capabilities: long},
		{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: name, Capabilities: provider.ModelCapabilities{
			SupportsStreaming: true,
			SupportsJSONMode:  true,
			MaxContextTokens:  1048576,
			MaxOutputTokens:   8192,
		}},
	}
}

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return knownModels(), nil
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, solerr.Wrapf(err, solerr.CodeProviderRequestInvalid, "google: converting messages")
	}

	config := buildConfig(req)

	eventCh := make(chan provider.ChatEvent, 100)

	go func() {
		defer close(eventCh)
		p.streamChat(ctx, req.Model, contents, config, eventCh)
	}()

	return eventCh, nil
}

func (p *Provider) Status(ctx context.Context) (provider.ProviderStatus, error) {
	msg := "ok"
	available := p.Available(ctx)
	if !available {
		msg = "cooling down after upstream failure"
	}
	return provider.ProviderStatus{
		Available: available,
		Provider:  name,
		Message:   msg,
	}, nil
}

func (p *Provider) Close() error { return nil }

// buildConfig converts a provider.ChatRequest into a genai.GenerateContentConfig.
func buildConfig(req provider.ChatRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}

	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}

	if len(req.Options.StopSequences) > 0 {
		cfg.StopSequences = req.Options.StopSequences
	}

	var system []*genai.Part
	if req.SystemPrompt != "" {
		system = append(system, &genai.Part{Text: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		if msg.Role == store.RoleSystem {
			system = append(system, &genai.Part{Text: msg.Content})
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	return cfg
}

// convertMessages transforms provider messages into genai.Content values.
// System messages are excluded; buildConfig folds them into the system
// instruction.
func convertMessages(msgs []provider.Message) ([]*genai.Content, error) {
	var result []*genai.Content

	for _, msg := range msgs {
		switch msg.Role {
		case store.RoleUser:
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case store.RoleAssistant:
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case store.RoleSystem:
			continue
		default:
			return nil, solerr.Errorf(solerr.CodeProviderRequestInvalid, "google: unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}

// streamChat runs the streaming loop, converting SDK responses into provider.ChatEvent values.
func (p *Provider) streamChat(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	ch chan<- provider.ChatEvent,
) {
	var usage *provider.Usage

	for result, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			classified := classify(err)
			p.health.Observe(classified)
			ch <- provider.ChatEvent{Type: provider.EventTypeError, Err: classified}
			return
		}

		for _, candidate := range result.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" && !part.Thought {
					ch <- provider.ChatEvent{
						Type: provider.EventTypeTextDelta,
						Text: part.Text,
					}
				}
			}
		}

		// Usage metadata is cumulative; keep the latest.
		if result.UsageMetadata != nil {
			usage = &provider.Usage{
				InputTokens:  int(result.UsageMetadata.PromptTokenCount),
				OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			}
		}
	}

	p.health.RecordSuccess()
	if usage != nil {
		ch <- provider.ChatEvent{Type: provider.EventTypeUsage, Usage: usage}
	}
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
}

// classify maps SDK errors onto provider error codes by HTTP status.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return provider.ClassifyStatus(name, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return provider.ClassifyStatus(name, apiErrPtr.Code, err)
	}
	return provider.Classify(name, err)
}
