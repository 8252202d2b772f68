package parchi

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIParserModel = "gpt-4o-mini"

var errResponseNoChoices = errors.New("chat completion returned no choices")

const openAIParserSystemPrompt = "You extract structured appointment data from transcriptions of handwritten clinic chits. You reply with a JSON array only, never with prose."

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIParser extracts structured entries with an OpenAI-compatible chat
// model. It backs up the Gemini parser when that provider is degraded.
type OpenAIParser struct {
	client chatClient
	model  string
	loc    *time.Location
	now    func() time.Time
}

var _ EntryParser = (*OpenAIParser)(nil)

// NewOpenAIParser returns a chat-completion-backed entry parser.
func NewOpenAIParser(client chatClient, model string, loc *time.Location) *OpenAIParser {
	if client == nil {
		panic("parchi: chat client cannot be nil")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIParserModel
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OpenAIParser{
		client: client,
		model:  model,
		loc:    loc,
		now:    time.Now,
	}
}

// ParseEntries sends the transcription as a chat completion and decodes the
// fixed entry schema from the reply.
func (p *OpenAIParser) ParseEntries(ctx context.Context, rawText string) ([]RawEntry, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, nil
	}

	today := p.now().In(p.loc).Format("2006-01-02")
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: parserTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAIParserSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildParsePrompt(today, rawText)},
		},
	})
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ParseError{Cause: errResponseNoChoices}
	}

	entries, err := decodeEntries(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	return entries, nil
}
