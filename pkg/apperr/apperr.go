// Package apperr defines the typed error taxonomy used across every
// outbound call site: collectors, LLM scorer, spreadsheet client, fallback
// store.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds, classified by kind rather than by concrete type.
const (
	CodeTransient     = "TRANSIENT_NETWORK"
	CodeRateLimit     = "RATE_LIMIT"
	CodeAuthFailed    = "AUTHENTICATION"
	CodeValidation    = "SCHEMA_VALIDATION"
	CodeMapping       = "MAPPING_ERROR"
	CodeStorageOutage = "STORAGE_OUTAGE"
	CodeConfig        = "CONFIGURATION"
	CodeSpreadsheet   = "SPREADSHEET_ERROR"
)

// AppError is a structured application error distinguished by Code so call
// sites can branch on kind without type assertions.
type AppError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newErr(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Transient wraps a network/5xx/DNS failure after retries are exhausted.
func Transient(op string, err error) *AppError {
	return newErr(CodeTransient, fmt.Sprintf("transient failure: %s", op), err)
}

// RateLimited wraps a persistent 429 after backoff retries are exhausted.
func RateLimited(op string, err error) *AppError {
	return newErr(CodeRateLimit, fmt.Sprintf("rate limited: %s", op), err)
}

// AuthFailed wraps a 401/403 or missing-token failure for a given source.
func AuthFailed(source string, err error) *AppError {
	return newErr(CodeAuthFailed, fmt.Sprintf("authentication failed: %s", source), err).WithDetail("source", source)
}

// Validation wraps malformed LLM JSON or under-length reasoning after repair exhaustion.
func Validation(reason string, err error) *AppError {
	return newErr(CodeValidation, reason, err)
}

// Mapping wraps a spreadsheet field name miss.
func Mapping(field string) *AppError {
	return newErr(CodeMapping, fmt.Sprintf("field not in schema cache: %s", field), nil).WithDetail("field", field)
}

// StorageOutage wraps a primary-store-unreachable condition.
func StorageOutage(err error) *AppError {
	return newErr(CodeStorageOutage, "primary storage unreachable", err)
}

// Config wraps a startup configuration error.
func Config(message string) *AppError {
	return newErr(CodeConfig, message, nil)
}

// SpreadsheetError is the typed error the storage layer raises explicitly:
// only after the retry helper exhausts its attempts against the spreadsheet
// backend.
type SpreadsheetError struct {
	*AppError
	Batch int // index of the batch that failed, for log correlation
}

func NewSpreadsheetError(op string, batch int, err error) *SpreadsheetError {
	return &SpreadsheetError{
		AppError: newErr(CodeSpreadsheet, fmt.Sprintf("spreadsheet operation failed: %s", op), err),
		Batch:    batch,
	}
}

// Unwrap exposes the embedded AppError, so IsAppError and Code recognise a
// SpreadsheetError as the CodeSpreadsheet kind.
func (e *SpreadsheetError) Unwrap() error { return e.AppError }

// IsTransientRetryable reports whether err (or anything it wraps) is a
// transient or rate-limit AppError, the two kinds worth retrying.
func IsTransientRetryable(err error) bool {
	switch Code(err) {
	case CodeTransient, CodeRateLimit:
		return true
	default:
		return false
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// Code extracts the AppError code, or "" if err is not (or does not wrap) an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
