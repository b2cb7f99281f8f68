package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDownload      = errors.New("download failed")
	ErrConversion    = errors.New("conversion failed")
	ErrRecognition   = errors.New("recognition failed")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrInterrupted   = errors.New("interrupted")
)

// Code is the wire-level failure code reported to the remote pull queue.
type Code int

const (
	CodeInterrupted Code = 0
	CodeDownload    Code = 900
	CodeConversion  Code = 901
	CodeRecognition Code = 902
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureCode maps a stage error to the code reported for the failed item.
// Unclassified errors fall back to the recognition code because recognition
// is the only stage that can surface engine errors without a marker.
func FailureCode(err error) Code {
	switch {
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return CodeInterrupted
	case errors.Is(err, ErrDownload):
		return CodeDownload
	case errors.Is(err, ErrConversion):
		return CodeConversion
	default:
		return CodeRecognition
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
