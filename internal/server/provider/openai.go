package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API root, e.g. for an OpenAI-compatible gateway.
	BaseURL string
	Model   string
}

// OpenAI streams chat completions with the prompt and the image as a data URL.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(c OpenAIConfig) *OpenAI {
	cfg := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: c.Model}
}

func (p *OpenAI) Open(ctx context.Context, in Input) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:  p.model,
		Stream: true,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: in.Prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    in.Image.DataURL(),
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, describe(err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", describe(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// describe reduces SDK errors to the provider's own message where there is
// one, so that it can be shown to the client.
func describe(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s", apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("provider request failed with status %d", reqErr.HTTPStatusCode)
	}
	return err
}
