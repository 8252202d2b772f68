package parchi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultVisionModel = "gemini-2.0-flash"
	visionTemperature  = 0.1

	// Vendor text beyond this length is noise, not a chit.
	maxRawTextLen = 10000
)

// ocrPrompt asks for a faithful transcription only. Structure is recovered
// later by the entry parser.
const ocrPrompt = "Extract ALL text from this image exactly as written. " +
	"Preserve the original formatting, layout, and structure as much as possible. " +
	"If there are tables, preserve them. If there are headers, preserve them. " +
	"Return ONLY the extracted text, nothing else."

// VisionExtractor turns a chit photograph into raw unstructured text.
type VisionExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ValidateImage checks an upload before any upstream call. It returns the
// sniffed MIME type on success and an error wrapping ErrInvalidImage when
// the payload is empty, oversized, or not an image.
func ValidateImage(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidImage, maxBytes)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: detected content type %s", ErrInvalidImage, mime)
	}
	return mime, nil
}

// GeminiVision reads handwriting with Gemini's multimodal models.
type GeminiVision struct {
	client  *genai.Client
	modelID string
}

var _ VisionExtractor = (*GeminiVision)(nil)

// NewGeminiVision creates a vision extractor backed by the Gemini API.
func NewGeminiVision(ctx context.Context, apiKey, modelID string) (*GeminiVision, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("parchi: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultVisionModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("parchi: failed to create gemini client: %w", err)
	}

	return &GeminiVision{client: client, modelID: modelID}, nil
}

// ExtractText sends the image to Gemini and returns the transcription
// verbatim. Upstream failures come back as *ExtractionError; the call is
// never retried here.
func (g *GeminiVision) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(visionTemperature)
	model.SetMaxOutputTokens(4000)

	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(ocrPrompt))
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}

	text, err := candidateText(resp)
	if err != nil {
		return "", &ExtractionError{Cause: err}
	}
	if len(text) > maxRawTextLen {
		text = text[:maxRawTextLen]
	}
	return text, nil
}

// Close releases resources held by the Gemini client.
func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("gemini returned empty content")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
