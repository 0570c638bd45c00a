package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/JonMunkholm/dryerlog/internal/export"
	"github.com/JonMunkholm/dryerlog/internal/importer"
	"github.com/JonMunkholm/dryerlog/internal/schema"
	"github.com/JonMunkholm/dryerlog/internal/store"
)

// Error kinds. Every error returned by the service matches at most one of
// these through errors.Is.
var (
	ErrValidation   = schema.ErrValidation
	ErrNotFound     = store.ErrNotFound
	ErrPersistence  = store.ErrPersistence
	ErrInvalidInput = store.ErrInvalidInput
	ErrNoValidData  = importer.ErrNoValidData
	ErrFileTooLarge = importer.ErrFileTooLarge
	ErrNoRecords    = export.ErrNoRecords

	// ErrParse wraps every failure to read a CSV or JSON input.
	ErrParse = errors.New("parse failed")
	// ErrNoFile is returned when an operation is given no input.
	ErrNoFile = errors.New("no file provided")
)

type (
	// FileError names the failed file of a batch.
	FileError = importer.FileError
	// RowError is one malformed CSV line.
	RowError = importer.RowError
	// ParseReport lists the malformed lines of a rejected file.
	ParseReport = importer.ParseReport
)

// parseError marks err as ErrParse when it comes from reading the input
// format. Size, cancellation and I/O errors pass through unchanged.
func parseError(err error) error {
	if err == nil || errors.Is(err, ErrParse) {
		return err
	}
	var ce *csv.ParseError
	switch {
	case errors.Is(err, importer.ErrMalformed),
		errors.Is(err, importer.ErrNoHeader),
		errors.Is(err, importer.ErrInvalidJSON),
		errors.Is(err, importer.ErrNotArray),
		errors.Is(err, importer.ErrNoChannels),
		errors.As(err, &ce):
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return err
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
