package core

// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Users can quote the code when reporting a problem.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Record failed validation (required field empty, rule failed)
//	         Action: Correct the listed fields and save again
//	VAL002 - Invalid request (unknown view, sort key, filter value)
//	         Action: Check the request parameters
//
// # Parse Errors (PAR001-PAR099)
//
//	PAR001 - CSV contains malformed rows (bad quoting, wrong column count)
//	         Action: Fix the listed lines and import the file again
//	PAR002 - File has no header row
//	PAR003 - JSON snapshot is not valid JSON
//	PAR004 - JSON snapshot is not a record array
//	PAR005 - Raw data file has none of the CH01..CH05, AVE columns
//
// # Record Errors (NF001-NF099)
//
//	NF001  - Record not found
//
// # Storage Errors (PER001-PER099)
//
//	PER001 - Saving to storage failed; the change is kept in memory only
//	         Action: Check the storage backend and export a JSON backup
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File exceeds IMPORT_MAX_FILE_SIZE
//	FILE002 - File parsed but produced no records
//	FILE003 - No file was given
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - Nothing to export (empty view, no unsynced records)
//
// # Import Errors (UPL001-UPL099)
//
//	UPL001 - Too many imports in progress
//	UPL002 - Import was cancelled
//	UPL003 - Import timed out
//
// # Default Error (SYS001)
//
// Fallback when nothing matches. Check the application log for the
// original error.
//
// # Matching
//
// MapError first tests the error kinds with errors.Is, in table order, so
// specific kinds must come before the kinds that wrap them (ErrParse).
// Errors that lost their chain (text received over the API, for example)
// are then matched case-insensitively on their message.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dryerlog/internal/importer"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorKind struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorKinds = []errorKind{
	// Validation
	{
		target:  ErrValidation,
		pattern: "validation failed",
		msg: UserMessage{
			Message: "The record failed validation",
			Action:  "Correct the listed fields and save again",
			Code:    "VAL001",
		},
	},
	{
		target:  ErrInvalidInput,
		pattern: "invalid input",
		msg: UserMessage{
			Message: "The request is not valid",
			Action:  "Check the selected view, sort field and filter values",
			Code:    "VAL002",
		},
	},

	// Parse
	{
		target:  importer.ErrMalformed,
		pattern: "malformed row",
		msg: UserMessage{
			Message: "The CSV file contains malformed rows",
			Action:  "Fix the quoting or column count on the listed lines and import again",
			Code:    "PAR001",
		},
	},
	{
		target:  importer.ErrNoHeader,
		pattern: "missing header row",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Export the file again with its header row",
			Code:    "PAR002",
		},
	},
	{
		target:  importer.ErrNotArray,
		pattern: "not a record array",
		msg: UserMessage{
			Message: "The JSON file is not a record list",
			Action:  "Select an all_records.json or tablet-data file",
			Code:    "PAR004",
		},
	},
	{
		target:  importer.ErrInvalidJSON,
		pattern: "invalid snapshot json",
		msg: UserMessage{
			Message: "The JSON file could not be read",
			Action:  "Check that the file is a complete JSON export",
			Code:    "PAR003",
		},
	},
	{
		target:  importer.ErrNoChannels,
		pattern: "no channel columns",
		msg: UserMessage{
			Message: "The raw data file has no channel columns",
			Action:  "The header must include at least one of CH01, CH02, CH03, CH04, CH05, AVE",
			Code:    "PAR005",
		},
	},

	// Records
	{
		target:  ErrNotFound,
		pattern: "record not found",
		msg: UserMessage{
			Message: "The record was not found",
			Action:  "Reload the list; the record may have been deleted",
			Code:    "NF001",
		},
	},

	// Storage
	{
		target:  ErrPersistence,
		pattern: "persistence failed",
		msg: UserMessage{
			Message: "The change could not be saved to storage",
			Action:  "Check the storage backend and export a JSON backup",
			Code:    "PER001",
		},
	},

	// Files
	{
		target:  ErrFileTooLarge,
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the maximum size",
			Action:  "Split the file or raise IMPORT_MAX_FILE_SIZE",
			Code:    "FILE001",
		},
	},
	{
		target:  ErrNoValidData,
		pattern: "no valid data",
		msg: UserMessage{
			Message: "No valid data found in the file",
			Action:  "Check the record type and machine model columns",
			Code:    "FILE002",
		},
	},
	{
		target:  ErrNoFile,
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Select a file and try again",
			Code:    "FILE003",
		},
	},

	// Exports
	{
		target:  ErrNoRecords,
		pattern: "no records to export",
		msg: UserMessage{
			Message: "There are no records to export",
			Action:  "Add or import records, or change the view and filters",
			Code:    "EXP001",
		},
	},

	// Imports
	{
		target:  ErrTooManyParses,
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "The system is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The import was cancelled",
			Action:  "Start the import again when ready",
			Code:    "UPL002",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The import timed out",
			Action:  "Try a smaller file or raise IMPORT_TIMEOUT",
			Code:    "UPL003",
		},
	},

	// Generic parse failure, after the specific kinds it wraps.
	{
		target:  ErrParse,
		pattern: "parse failed",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the file format and import again",
			Code:    "PAR001",
		},
	},
}

// defaultMessage is returned when nothing matches (SYS001).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the application log",
	Code:    "SYS001",
}

// MapError converts an error to a user-facing message. It returns the zero
// UserMessage for nil.
//
// Example:
//
//	_, err := svc.ImportCSV(ctx, src)
//	msg := MapError(err)
//	// msg.Code == "FILE002" when no row produced a record
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, k := range errorKinds {
		if strings.Contains(errStr, k.pattern) {
			return k.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the SYS001 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
