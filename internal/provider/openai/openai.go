// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package openai

import (
	"context"
	"errors"
	"net/http"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Config holds configuration for any OpenAI-compatible Chat Completions
// endpoint.
type Config struct {
	// Name is the registry name reported by the provider. Defaults to "openai".
	Name    string
	APIKey  string
	BaseURL string // optional, useful for compatible gateways and tests

	// LegacyMaxTokens sends max_tokens instead of max_completion_tokens for
	// gateways that predate the newer field.
	LegacyMaxTokens bool

	// Models overrides the advertised model list.
	Models []provider.ModelInfo

	HTTPClient *http.Client
}

// Provider implements provider.Provider using the OpenAI Chat Completions API.
type Provider struct {
	client openaisdk.Client
	config Config
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new OpenAI-compatible provider. Returns an error if the API
// key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.APIKey == "" {
		return nil, solerr.New(solerr.CodeProviderRequestInvalid,
			cfg.Name+": missing api_key in config", solerr.FieldProvider(cfg.Name))
	}
	if cfg.Models == nil {
		cfg.Models = knownModels(cfg.Name)
	}

	// Retries are owned by the caller's retry policy.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Provider{
		client: openaisdk.NewClient(opts...),
		config: cfg,
		health: provider.MustHealthTracker(provider.DefaultHealthCooldown),
	}, nil
}

func (p *Provider) Name() string { return p.config.Name }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.IsHealthy()
}

func (p *Provider) HealthMetrics() provider.HealthMetrics {
	return p.health.HealthMetrics()
}

// knownModels returns the hardcoded set of known OpenAI models.
func knownModels(name string) []provider.ModelInfo {
	caps := provider.ModelCapabilities{
		SupportsStreaming: true,
		SupportsJSONMode:  true,
		MaxContextTokens:  1047576,
		MaxOutputTokens:   32768,
	}
	mini := caps
	mini.MaxOutputTokens = 16384

	return []provider.ModelInfo{
		{ID: "gpt-4.1", Name: "GPT-4.1", Provider: name, Capabilities: caps},
		{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", Provider: name, Capabilities: mini},
		{ID: "gpt-4.1-nano", Name: "GPT-4.1 Nano", Provider: name, Capabilities: mini},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: name, Capabilities: provider.ModelCapabilities{
			SupportsStreaming: true,
			SupportsJSONMode:  true,
			MaxContextTokens:  128000,
			MaxOutputTokens:   16384,
		}},
	}
}

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return p.config.Models, nil
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	params, err := buildParams(req, p.config.LegacyMaxTokens)
	if err != nil {
		return nil, solerr.Wrapf(err, solerr.CodeProviderRequestInvalid, "%s: building request params", p.config.Name)
	}

	eventCh := make(chan provider.ChatEvent, 100)

	go func() {
		defer close(eventCh)
		p.streamChat(ctx, params, eventCh)
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
		Provider:  p.config.Name,
		Message:   msg,
	}, nil
}

func (p *Provider) Close() error { return nil }

// buildParams converts a provider.ChatRequest into Chat Completions params.
func buildParams(req provider.ChatRequest, legacyMaxTokens bool) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages, req.SystemPrompt)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: param.NewOpt(req.Options.Temperature),
		StreamOptions: openaisdk.ChatCompletionStreamOptionsParam{
			IncludeUsage: param.NewOpt(true),
		},
	}

	if req.Options.MaxTokens > 0 {
		if legacyMaxTokens {
			params.MaxTokens = param.NewOpt(int64(req.Options.MaxTokens))
		} else {
			params.MaxCompletionTokens = param.NewOpt(int64(req.Options.MaxTokens))
		}
	}

	if len(req.Options.StopSequences) > 0 {
		params.Stop = openaisdk.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Options.StopSequences,
		}
	}

	return params, nil
}

// convertMessages transforms provider messages into SDK message params. The
// system prompt is prepended as a system message if present.
func convertMessages(msgs []provider.Message, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs)+1)

	if systemPrompt != "" {
		result = append(result, openaisdk.SystemMessage(systemPrompt))
	}

	for _, msg := range msgs {
		switch msg.Role {
		case store.RoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))
		case store.RoleAssistant:
			result = append(result, openaisdk.AssistantMessage(msg.Content))
		case store.RoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		default:
			return nil, solerr.Errorf(solerr.CodeProviderRequestInvalid, "unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}

// streamChat runs the streaming loop, converting SDK chunks into
// provider.ChatEvent values.
func (p *Provider) streamChat(ctx context.Context, params openaisdk.ChatCompletionNewParams, ch chan<- provider.ChatEvent) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		chunk := stream.Current()

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				ch <- provider.ChatEvent{
					Type: provider.EventTypeTextDelta,
					Text: choice.Delta.Content,
				}
			}
		}

		// Usage arrives on the final chunk when include_usage is set.
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			ch <- provider.ChatEvent{
				Type: provider.EventTypeUsage,
				Usage: &provider.Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
				},
			}
		}
	}

	if err := stream.Err(); err != nil {
		classified := classify(p.config.Name, err)
		p.health.Observe(classified)
		ch <- provider.ChatEvent{Type: provider.EventTypeError, Err: classified}
		return
	}

	p.health.RecordSuccess()
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
}

// classify maps SDK errors onto provider error codes by HTTP status.
func classify(name string, err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return provider.ClassifyStatus(name, apiErr.StatusCode, err)
	}
	return provider.Classify(name, err)
}
