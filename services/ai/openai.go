// Package aisvc implements core/ai capabilities over OpenAI-compatible
// chat-completion APIs.
package aisvc

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/ai"
)

type capability struct {
	client *openai.Client
	model  string
}

var _ ai.Capability = (*capability)(nil)

// NewCapability creates a single chat-completion capability for the given
// model. The three pipeline stages each get their own capability so models
// can be tuned per stage.
func NewCapability(apiKey, baseURL, model string) (ai.Capability, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("AI API key is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &capability{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// NewCapabilities builds the generate/verify/repair capability trio from
// config. Constructed once at process start and injected into the pipeline.
func NewCapabilities(cfg core.AIConfig) (generator, verifier, repairer ai.Capability, err error) {
	if generator, err = NewCapability(cfg.APIKey, cfg.BaseURL, cfg.GenerateModel); err != nil {
		return nil, nil, nil, err
	}
	if verifier, err = NewCapability(cfg.APIKey, cfg.BaseURL, cfg.VerifyModel); err != nil {
		return nil, nil, nil, err
	}
	if repairer, err = NewCapability(cfg.APIKey, cfg.BaseURL, cfg.RepairModel); err != nil {
		return nil, nil, nil, err
	}
	return generator, verifier, repairer, nil
}

func (c *capability) Complete(ctx context.Context, req ai.Request) (ai.Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return ai.Response{}, &ai.ErrUnavailable{Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return ai.Response{}, &ai.ErrEmptyResponse{}
	}

	return ai.Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
	}, nil
}

func (c *capability) ModelID() string { return c.model }

func buildMessages(req ai.Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	if len(req.Images) == 0 {
		return append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.User,
		})
	}

	// Multimodal turn: text part followed by inline data-URL image parts.
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: req.User},
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
}

func dataURL(img ai.ImageInput) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MediaType, base64.StdEncoding.EncodeToString(img.Data))
}
