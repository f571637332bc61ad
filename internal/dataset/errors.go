package dataset

import (
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

// Machine-readable error codes.
const (
	CodeLoadFailed       = "LOAD_FAILED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeParseFailed      = "PARSE_FAILED"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeUnknown          = "UNKNOWN"
)

// Error is the one error type surfaced by the dataset core. It carries a
// machine-readable code, an HTTP-style status, and free-form context.
type Error struct {
	Code    string
	Status  int
	Message string
	Context map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds an Error with the default status for its code.
func NewError(code, message string) *Error {
	return &Error{Code: code, Status: statusFor(code), Message: message}
}

// WrapError builds an Error around an underlying cause.
func WrapError(code, message string, cause error) *Error {
	return &Error{Code: code, Status: statusFor(code), Message: message, cause: cause}
}

// WithContext attaches a context entry and returns the same error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func statusFor(code string) int {
	switch code {
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case CodeParseFailed, CodeInvalidFormat:
		return http.StatusBadRequest
	case CodeFileNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var userMessages = map[string]LocalizedText{
	CodeLoadFailed: {
		EN: "Failed to load dataset. Please try again later.",
		CS: "Nepodařilo se načíst datovou sadu. Zkuste to prosím později.",
	},
	CodeValidationFailed: {
		EN: "Dataset validation failed. The data format may be invalid.",
		CS: "Ověření datové sady se nezdařilo. Formát dat může být neplatný.",
	},
	CodeParseFailed: {
		EN: "Failed to parse the dataset. Please check the file format.",
		CS: "Nepodařilo se analyzovat datovou sadu. Prosím zkontrolujte formát souboru.",
	},
	CodeFileNotFound: {
		EN: "The dataset file was not found.",
		CS: "Soubor datové sady nebyl nalezen.",
	},
	CodeInvalidFormat: {
		EN: "The dataset has an invalid format.",
		CS: "Datová sada má neplatný formát.",
	},
	CodeDatabaseError: {
		EN: "A database error occurred. Please try again later.",
		CS: "Došlo k chybě databáze. Zkuste to prosím později.",
	},
	CodeUnknown: {
		EN: "An unexpected error occurred while loading the dataset.",
		CS: "Při načítání datové sady došlo k neočekávané chybě.",
	},
}

var langMatcher = language.NewMatcher([]language.Tag{
	language.English, // first tag is the fallback
	language.Czech,
})

// UserMessage returns the localized user-facing message for an error,
// without leaking internal detail. lang is a BCP 47 tag; anything that
// does not match Czech falls back to English.
func UserMessage(err *Error, lang string) string {
	msg, ok := userMessages[err.Code]
	if !ok {
		msg = userMessages[CodeUnknown]
	}
	_, index, _ := langMatcher.Match(language.Make(lang))
	if index == 1 {
		return msg.CS
	}
	return msg.EN
}
