package cli

import (
	"errors"
	"strings"

	"github.com/hubctl/hubctl/internal/commands"
	"github.com/hubctl/hubctl/internal/config"
	"github.com/hubctl/hubctl/internal/credentials"
	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/journal"
	"github.com/hubctl/hubctl/internal/params"
	"github.com/hubctl/hubctl/internal/scenario"
	"github.com/hubctl/hubctl/internal/schema"
	"github.com/hubctl/hubctl/internal/schemacache"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	ErrConfigInvalid   = "CONFIG_INVALID"
	ErrProfileNotFound = "PROFILE_NOT_FOUND"
	ErrSchemaInvalid   = "SCHEMA_INVALID"
	ErrSchemaNotCached = "SCHEMA_NOT_CACHED"
	ErrMethodNotFound  = "METHOD_NOT_FOUND"
	ErrInvalidInput    = "INVALID_INPUT"
	ErrIntegrity       = "INTEGRITY_ERROR"
	ErrNotInJournal    = "NOT_IN_JOURNAL"
	ErrRemote          = "REMOTE_ERROR"
	ErrInternal        = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnSkipped        = "SKIPPED"
	WarnMethodRejected = "METHOD_REJECTED"
	WarnCategoryShadow = "CATEGORY_SHADOWED"
	WarnBundledSchema  = "BUNDLED_SCHEMA"
)

// configError marks failures to load config or state.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// inputError is a rejected command-line value of a built-in command.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

// errorCode classifies err into one of the stable error codes.
func errorCode(err error) string {
	var (
		cfgErr      *configError
		badInput    *inputError
		notFound    *config.ProfileNotFoundError
		inputErr    *params.InputError
		usageErr    *commands.UsageError
		integrity   *scenario.IntegrityError
		missingFile *scenario.MissingFileError
		remote      *hub.RemoteError
		methodErr   *commands.MethodError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ErrConfigInvalid
	case errors.As(err, &notFound), errors.Is(err, config.ErrNoProfile), errors.Is(err, credentials.ErrNoPassword):
		return ErrProfileNotFound
	case errors.As(err, &inputErr), errors.As(err, &usageErr), errors.As(err, &badInput):
		return ErrInvalidInput
	case errors.As(err, &integrity), errors.As(err, &missingFile):
		return ErrIntegrity
	case errors.Is(err, schema.ErrMethodNotFound):
		return ErrMethodNotFound
	case errors.Is(err, schemacache.ErrNotFound):
		return ErrSchemaNotCached
	case errors.Is(err, journal.ErrNotFound):
		return ErrNotInJournal
	case errors.Is(err, scenario.ErrUnsupportedType), errors.Is(err, commands.ErrFlagCollision), errors.Is(err, schema.ErrInvalidSchema):
		return ErrSchemaInvalid
	case errors.As(err, &remote), errors.As(err, &methodErr), errors.Is(err, hub.ErrClosed):
		return ErrRemote
	case isCobraUsageError(err):
		return ErrInvalidInput
	default:
		return ErrInternal
	}
}

// isCobraUsageError recognizes the plain errors cobra returns for command
// lines it cannot parse.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "accepts ", "requires at least", "invalid argument"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
