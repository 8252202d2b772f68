package parchi

import (
	"context"
	"log/slog"
)

// FallbackParser wraps a primary entry parser with a fallback provider.
// If the primary fails, it automatically retries with the fallback.
type FallbackParser struct {
	primary  EntryParser
	fallback EntryParser
	logger   *slog.Logger
}

var _ EntryParser = (*FallbackParser)(nil)

// NewFallbackParser creates a fallback-enabled entry parser. If fallback is
// nil, only the primary provider is used.
func NewFallbackParser(primary, fallback EntryParser, logger *slog.Logger) *FallbackParser {
	if primary == nil {
		panic("parchi: primary parser cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackParser{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// ParseEntries asks the primary parser first. If it fails and a fallback is
// configured, the same text is retried with the fallback.
func (p *FallbackParser) ParseEntries(ctx context.Context, rawText string) ([]RawEntry, error) {
	entries, err := p.primary.ParseEntries(ctx, rawText)
	if err == nil {
		return entries, nil
	}

	p.logger.Warn("primary entry parser failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", p.fallback != nil,
	)

	if p.fallback == nil {
		return nil, err
	}

	fallbackEntries, fallbackErr := p.fallback.ParseEntries(ctx, rawText)
	if fallbackErr != nil {
		p.logger.Error("fallback entry parser also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return nil, fallbackErr
	}

	p.logger.Info("fallback entry parser succeeded after primary failure")
	return fallbackEntries, nil
}
