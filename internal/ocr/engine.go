package ocr

import (
	"context"
	"errors"
)

// DefaultConfidence is reported for engines that do not expose a per-scan
// confidence value.
const DefaultConfidence = 0.80

var ErrEngineDisabled = errors.New("ocr engine disabled")

// ProgressFunc observes recognition progress as a 0-100 percentage. It may
// be nil.
type ProgressFunc func(percent int)

type Result struct {
	Text       string
	Confidence float64
}

// Engine turns a receipt image into raw text. Recognition is the only step
// of the pipeline that leaves the process.
type Engine interface {
	Recognize(ctx context.Context, image []byte, language string, onProgress ProgressFunc) (Result, error)
	Close() error
}

// DisabledEngine is used when no OCR backend is configured. Every call
// fails, which surfaces as an upstream error on receipt processing.
type DisabledEngine struct{}

func (DisabledEngine) Recognize(_ context.Context, _ []byte, _ string, _ ProgressFunc) (Result, error) {
	return Result{}, ErrEngineDisabled
}

func (DisabledEngine) Close() error {
	return nil
}
