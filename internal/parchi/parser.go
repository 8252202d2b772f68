package parchi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultParserModel = "gemini-2.0-flash"
	parserTemperature  = 0.1
)

// EntryParser turns raw chit text into candidate appointment entries.
// A zero-entry result is valid; only an unusable reply is an error.
type EntryParser interface {
	ParseEntries(ctx context.Context, rawText string) ([]RawEntry, error)
}

// buildParsePrompt renders the fixed-schema extraction prompt. The date
// default keeps undated chits on today's schedule in the clinic timezone.
func buildParsePrompt(today, rawText string) string {
	return fmt.Sprintf(`You are reading the transcription of a handwritten appointment chit (called a 'parchi') from a doctor's clinic. It contains patient appointments with names, phone numbers, and appointment times.

Read the transcription carefully and extract ALL patient appointments.

For each appointment, extract:
- name: the patient's full name
- phone: the phone number (assume +91 country code for India if not written)
- date: appointment date in YYYY-MM-DD format (use %s if not specified)
- time: appointment time in HH:MM 24-hour format (use 09:00 if not specified)

Return ONLY a valid JSON array with no other text. If the transcription contains no appointments, return []. Example:
[{"name": "Ramesh Kumar", "phone": "+919876543210", "date": "2026-02-14", "time": "10:30"}]

Transcription:
%s`, today, rawText)
}

// decodeEntries recovers the JSON array from a model reply that may be
// wrapped in markdown fences or surrounded by prose.
func decodeEntries(reply string) ([]RawEntry, error) {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply: %s", truncateReply(reply))
	}

	var entries []RawEntry
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

func truncateReply(s string) string {
	const max = 300
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// GeminiParser extracts structured entries with a Gemini text model.
type GeminiParser struct {
	client  *genai.Client
	modelID string
	loc     *time.Location
	now     func() time.Time
}

var _ EntryParser = (*GeminiParser)(nil)

// NewGeminiParser creates an entry parser backed by the Gemini API. The
// location fixes what "today" means for undated entries.
func NewGeminiParser(ctx context.Context, apiKey, modelID string, loc *time.Location) (*GeminiParser, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("parchi: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultParserModel
	}
	if loc == nil {
		loc = time.UTC
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("parchi: failed to create gemini client: %w", err)
	}

	return &GeminiParser{
		client:  client,
		modelID: modelID,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// ParseEntries asks the model for the fixed entry schema and decodes the
// reply. Upstream or decode failures come back as *ParseError.
func (g *GeminiParser) ParseEntries(ctx context.Context, rawText string) ([]RawEntry, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, nil
	}

	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(parserTemperature)
	model.SetMaxOutputTokens(2000)

	today := g.now().In(g.loc).Format("2006-01-02")
	resp, err := model.GenerateContent(ctx, genai.Text(buildParsePrompt(today, rawText)))
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	reply, err := candidateText(resp)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	entries, err := decodeEntries(reply)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	return entries, nil
}

// Close releases resources held by the Gemini client.
func (g *GeminiParser) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
