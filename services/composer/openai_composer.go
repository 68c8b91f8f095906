package composer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// completionAPI is the slice of the OpenAI client the composer uses.
// *openai.Client satisfies it; tests substitute a fake.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIComposer struct {
	client completionAPI
	model  string
}

func NewOpenAIComposer() (*OpenAIComposer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL") // e.g., "gpt-4o"
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI composer", "model", model)
	return &OpenAIComposer{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// ComposeReply implements the Composer interface
func (o *OpenAIComposer) ComposeReply(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	slog.Debug("Composing reply via OpenAI", "model", o.model, "author", req.SourceAuthor)

	text, err := o.generate(ctx, buildComposePrompt(req))
	if err != nil {
		return nil, err
	}
	result := parseComposeResult(text)
	if !result.ShouldReply {
		slog.Info("Composer gated out reply", "author", req.SourceAuthor, "reason", result.SkipReason)
	}
	return result, nil
}

// AnalyzeStyle implements the Composer interface
func (o *OpenAIComposer) AnalyzeStyle(ctx context.Context, tweets []string) (string, error) {
	if len(tweets) == 0 {
		return "", fmt.Errorf("no tweets to analyze")
	}
	slog.Debug("Analyzing tweet style via OpenAI", "model", o.model, "tweets", len(tweets))
	return o.generate(ctx, buildStylePrompt(tweets))
}

// SampleReplies implements the Composer interface
func (o *OpenAIComposer) SampleReplies(ctx context.Context, styleInstructions string, sampleTweets []string) ([]string, error) {
	text, err := o.generate(ctx, buildSamplesPrompt(styleInstructions, sampleTweets))
	if err != nil {
		return nil, err
	}
	replies := parseNumberedList(text, 3)
	if len(replies) == 0 {
		return nil, fmt.Errorf("OpenAI returned no usable sample replies")
	}
	return replies, nil
}

func (o *OpenAIComposer) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices or empty content")
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
