package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

// CLIResult is a parsed --output json envelope.
type CLIResult struct {
	OK       bool
	Data     json.RawMessage
	Error    *CLIError
	Warnings []CLIWarning
	Meta     *CLIMeta
	Raw      string
}

// CLIError represents a structured error from the CLI.
type CLIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
}

// CLIWarning represents a warning from the CLI.
type CLIWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CLIMeta holds the envelope metadata.
type CLIMeta struct {
	Count  int    `json:"count,omitempty"`
	Method string `json:"method,omitempty"`
}

// ParseEnvelope parses the JSON envelope written by a command. Output that
// is not an envelope becomes a PARSE_ERROR result.
func ParseEnvelope(output string) *CLIResult {
	result := &CLIResult{Raw: output}

	var resp struct {
		OK       bool            `json:"ok"`
		Data     json.RawMessage `json:"data,omitempty"`
		Error    *CLIError       `json:"error,omitempty"`
		Warnings []CLIWarning    `json:"warnings,omitempty"`
		Meta     *CLIMeta        `json:"meta,omitempty"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &resp); err != nil {
		result.Error = &CLIError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse JSON output: " + err.Error(),
		}
		return result
	}

	result.OK = resp.OK
	result.Data = resp.Data
	result.Error = resp.Error
	result.Warnings = resp.Warnings
	result.Meta = resp.Meta
	return result
}

// MustSucceed fails the test if the command did not succeed.
func (r *CLIResult) MustSucceed(t *testing.T) *CLIResult {
	t.Helper()
	if !r.OK {
		errMsg := "unknown error"
		if r.Error != nil {
			errMsg = r.Error.Code + ": " + r.Error.Message
		}
		t.Fatalf("expected command to succeed, got error: %s\nRaw output: %s", errMsg, r.Raw)
	}
	return r
}

// MustFail fails the test if the command did not fail with the expected code.
func (r *CLIResult) MustFail(t *testing.T, expectedCode string) *CLIResult {
	t.Helper()
	if r.OK {
		t.Fatalf("expected command to fail with code %s, but it succeeded\nRaw output: %s", expectedCode, r.Raw)
	}
	if r.Error == nil {
		t.Fatalf("expected error with code %s, but error is nil\nRaw output: %s", expectedCode, r.Raw)
	}
	if r.Error.Code != expectedCode {
		t.Fatalf("expected error code %s, got %s: %s\nRaw output: %s", expectedCode, r.Error.Code, r.Error.Message, r.Raw)
	}
	return r
}

// DataMap decodes Data as an object.
func (r *CLIResult) DataMap(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(r.Data, &m); err != nil {
		t.Fatalf("data is not an object: %v\nRaw output: %s", err, r.Raw)
	}
	return m
}

// DataList decodes Data as an array.
func (r *CLIResult) DataList(t *testing.T) []interface{} {
	t.Helper()
	var list []interface{}
	if err := json.Unmarshal(r.Data, &list); err != nil {
		t.Fatalf("data is not an array: %v\nRaw output: %s", err, r.Raw)
	}
	return list
}
