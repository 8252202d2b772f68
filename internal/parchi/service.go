package parchi

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/russhil/backend-parchi/internal/observability/metrics"
	"github.com/russhil/backend-parchi/pkg/logging"
)

var uploadTracer = otel.Tracer("parchi.internal.upload")

// UploadConfig bounds one upload request.
type UploadConfig struct {
	MaxImageBytes  int64
	ExtractTimeout time.Duration
	ParseTimeout   time.Duration
}

// UploadResult is the preview returned to the review UI. Nothing is
// persisted at this stage.
type UploadResult struct {
	RawText string        `json:"raw_text"`
	Entries []UploadEntry `json:"entries"`
	Count   int           `json:"count"`
}

// UploadService turns one parchi image into editable entry previews. It owns
// the read-only half of the pipeline; committing reviewed entries is the
// Processor's job.
type UploadService struct {
	vision     VisionExtractor
	parser     EntryParser
	cache      *ExtractionCache
	normalizer *Normalizer
	cfg        UploadConfig
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics
}

// NewUploadService wires the extraction and parsing stages. cache may be nil
// when Redis is not configured; metrics may be nil in tests.
func NewUploadService(vision VisionExtractor, parser EntryParser, cache *ExtractionCache, normalizer *Normalizer, cfg UploadConfig, logger *logging.Logger, m *metrics.PipelineMetrics) *UploadService {
	if vision == nil {
		panic("parchi: upload service requires a vision extractor")
	}
	if parser == nil {
		panic("parchi: upload service requires an entry parser")
	}
	if normalizer == nil {
		panic("parchi: upload service requires a normalizer")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &UploadService{
		vision:     vision,
		parser:     parser,
		cache:      cache,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// Upload validates the image, extracts its text, and parses candidate
// entries. Failures are typed: ErrInvalidImage before any upstream call,
// *ExtractionError from the vision service, *ParseError from the entry
// parser. An image with no legible text is a success with zero entries.
func (s *UploadService) Upload(ctx context.Context, image []byte) (*UploadResult, error) {
	ctx, span := uploadTracer.Start(ctx, "parchi.upload")
	defer span.End()

	mimeType, err := ValidateImage(image, s.cfg.MaxImageBytes)
	if err != nil {
		s.metrics.ObserveUpload("invalid")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("mime_type", mimeType),
		attribute.Int("image_bytes", len(image)),
	)

	rawText, err := s.extract(ctx, image, mimeType)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveUpload("extract_failed")
		return nil, err
	}

	entries, err := s.parse(ctx, rawText)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveUpload("parse_failed")
		return nil, err
	}

	s.metrics.ObserveUpload("accepted")
	s.logger.Info("parchi upload previewed",
		"mime_type", mimeType,
		"raw_text_len", len(rawText),
		"entries", len(entries),
	)
	return &UploadResult{RawText: rawText, Entries: entries, Count: len(entries)}, nil
}

func (s *UploadService) extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	// The cache is advisory: a read failure falls through to the vision
	// service rather than failing the upload.
	if text, ok, err := s.cache.Get(ctx, image); err != nil {
		s.logger.Warn("extraction cache read failed", "error", err)
	} else if ok {
		s.logger.Debug("extraction cache hit", "raw_text_len", len(text))
		return text, nil
	}

	extractCtx := ctx
	if s.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, s.cfg.ExtractTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.vision.ExtractText(extractCtx, image, mimeType)
	s.metrics.ObserveStageLatency("extract", time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	if err := s.cache.Put(ctx, image, text); err != nil {
		s.logger.Warn("extraction cache write failed", "error", err)
	}
	return text, nil
}

func (s *UploadService) parse(ctx context.Context, rawText string) ([]UploadEntry, error) {
	parseCtx := ctx
	if s.cfg.ParseTimeout > 0 {
		var cancel context.CancelFunc
		parseCtx, cancel = context.WithTimeout(ctx, s.cfg.ParseTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.parser.ParseEntries(parseCtx, rawText)
	s.metrics.ObserveStageLatency("parse", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	entries := make([]UploadEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, UploadEntry{
			RawEntry:        r,
			AppointmentTime: s.normalizer.PreviewTimestamp(r.Date, r.Time),
		})
	}
	return entries, nil
}
