// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/store"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

const name = "anthropic"

// defaultMaxTokens is sent when the request carries no limit; the Messages
// API requires one.
const defaultMaxTokens = 4096

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	HTTPClient *http.Client
}

// Provider implements provider.Provider using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	config Config
	health *provider.HealthTracker
}

var (
	_ provider.Provider       = (*Provider)(nil)
	_ provider.HealthReporter = (*Provider)(nil)
)

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, solerr.New(solerr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config", solerr.FieldProvider(name))
	}

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
		client: anthropicsdk.NewClient(opts...),
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

// knownModels returns the hardcoded set of known Anthropic models.
func knownModels() []provider.ModelInfo {
	caps := func(maxOut int) provider.ModelCapabilities {
		return provider.ModelCapabilities{
			SupportsStreaming: true,
			MaxContextTokens:  200000,
			MaxOutputTokens:   maxOut,
		}
	}
	return []provider.ModelInfo{
		{ID: "claude-opus-4-1", Name: "Claude Opus 4.1", Provider: name, Capabilities: caps(32000)},
		{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Provider: name, Capabilities: caps(64000)},
		{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", Provider: name, Capabilities: caps(64000)},
	}
}

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return knownModels(), nil
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, solerr.Wrapf(err, solerr.CodeProviderRequestInvalid, "anthropic: building request params")
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
		Provider:  name,
		Message:   msg,
	}, nil
}

func (p *Provider) Close() error { return nil }

// buildParams converts a provider.ChatRequest into Anthropic SDK MessageNewParams.
func buildParams(req provider.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	msgs, system, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}
	if len(msgs) == 0 {
		return anthropicsdk.MessageNewParams{}, solerr.New(solerr.CodeProviderRequestInvalid,
			"anthropic: request has no user message")
	}

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
		// The Messages API accepts temperatures up to 1.0 only.
		Temperature: anthropicsdk.Float(min(req.Options.Temperature, 1.0)),
	}

	prompts := make([]string, 0, len(system)+1)
	if req.SystemPrompt != "" {
		prompts = append(prompts, req.SystemPrompt)
	}
	prompts = append(prompts, system...)
	if len(prompts) > 0 {
		params.System = []anthropicsdk.TextBlockParam{
			{Text: strings.Join(prompts, "\n\n")},
		}
	}

	if len(req.Options.StopSequences) > 0 {
		params.StopSequences = req.Options.StopSequences
	}

	return params, nil
}

// convertMessages transforms provider messages into Anthropic SDK params.
// System messages are lifted out and returned separately. The API requires
// the conversation to open with a user turn, so leading assistant turns left
// over from window eviction are dropped.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, []string, error) {
	var (
		result []anthropicsdk.MessageParam
		system []string
	)

	for _, msg := range msgs {
		switch msg.Role {
		case store.RoleUser:
			result = append(result, anthropicsdk.NewUserMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		case store.RoleAssistant:
			if len(result) == 0 {
				continue
			}
			result = append(result, anthropicsdk.NewAssistantMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		case store.RoleSystem:
			system = append(system, msg.Content)
		default:
			return nil, nil, solerr.Errorf(solerr.CodeProviderRequestInvalid, "anthropic: unsupported message role %q", msg.Role)
		}
	}

	return result, system, nil
}

// streamChat runs the streaming loop, converting SDK events into provider.ChatEvent values.
func (p *Provider) streamChat(ctx context.Context, params anthropicsdk.MessageNewParams, ch chan<- provider.ChatEvent) {
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var usage provider.Usage
	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "message_start":
			usage.InputTokens = int(event.Message.Usage.InputTokens)

		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				ch <- provider.ChatEvent{
					Type: provider.EventTypeTextDelta,
					Text: event.Delta.Text,
				}
			}

		case "message_delta":
			// message_delta carries the cumulative output token count.
			usage.OutputTokens = int(event.Usage.OutputTokens)
		}
	}

	if err := stream.Err(); err != nil {
		classified := classify(err)
		p.health.Observe(classified)
		ch <- provider.ChatEvent{Type: provider.EventTypeError, Err: classified}
		return
	}

	p.health.RecordSuccess()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		ch <- provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &usage}
	}
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
}

// classify maps SDK errors onto provider error codes by HTTP status.
func classify(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return provider.ClassifyStatus(name, apiErr.StatusCode, err)
	}
	return provider.Classify(name, err)
}
