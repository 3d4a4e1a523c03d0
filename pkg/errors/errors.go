// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreInvalidInput Code = "store.session.invalid_input"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigAlreadyExists        Code = "config.write.already_exists"

	CodeProviderRequestInvalid     Code = "provider.request.invalid"
	CodeProviderResponseInvalid    Code = "provider.response.invalid"
	CodeProviderUpstreamFailure    Code = "provider.upstream.failure"
	CodeProviderAuthFailure        Code = "provider.auth.failure"
	CodeProviderRateLimited        Code = "provider.rate_limit.rate_limited"
	CodeProviderRateLimitExhausted Code = "provider.rate_limit.exceeded"
	CodeProviderNotFound           Code = "provider.registry.not_found"
	CodeProviderModelRefInvalid    Code = "provider.routing.model_ref.invalid"

	CodeAgentInputInvalid Code = "agent.input.invalid"
	CodeAgentLoopFailure  Code = "agent.loop.failure"
	CodeAgentLaneClosed   Code = "agent.lane.closed"

	CodeServerRequestInvalid   Code = "server.request.invalid"
	CodeServerInternalFailure  Code = "server.internal.failure"
	CodeServerConfigInvalid    Code = "server.config.invalid"
	CodeServerStartFailure     Code = "server.start.failure"
	CodeServerShutdownFailure  Code = "server.shutdown.failure"
	CodeServerNotImplemented   Code = "server.method.not_implemented"
	CodeServerAgentUnavailable Code = "server.agent.unavailable"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
	CodeCLINotRunning   Code = "cli.server.not_running"

	CodeScannerRuleInvalid  Code = "scanner.rule.invalid"
	CodeScannerInputBlocked Code = "scanner.input.blocked"

	CodeSecretInvalidInput   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldSessionID(value string) Attr {
	return Field("session_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldIntent(value string) Attr {
	return Field("intent", value)
}

func FieldAttempts(value int) Attr {
	return Field("attempts", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the innermost code in the chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsTransient reports whether the failure may succeed if retried later.
func IsTransient(err error) bool {
	return reason(CodeOf(err)) == "rate_limited"
}

// IsRateLimitExhausted reports whether retries were spent on rate limiting.
func IsRateLimitExhausted(err error) bool {
	return HasCode(err, CodeProviderRateLimitExhausted)
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	if reason(code) != "failure" {
		return false
	}
	return strings.Contains(string(code), "upstream") || strings.HasPrefix(string(code), "provider.")
}

func HTTPStatus(err error) int {
	switch {
	case HasCode(err, CodeServerNotImplemented):
		return http.StatusNotImplemented
	case HasCode(err, CodeServerAgentUnavailable):
		return http.StatusServiceUnavailable
	case HasCode(err, CodeScannerInputBlocked):
		return http.StatusUnprocessableEntity
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsRateLimitExhausted(err), IsTransient(err):
		return http.StatusTooManyRequests
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage renders err as text safe to show to an end user. Provider
// error bodies are never included.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case HasCode(err, CodeAgentInputInvalid), HasCode(err, CodeServerRequestInvalid):
		return "Invalid input: please provide a message or code snippet."
	case HasCode(err, CodeScannerInputBlocked):
		return "Your message appears to contain a secret such as an API key or private key. Remove it and try again."
	case IsRateLimitExhausted(err), IsTransient(err):
		return "The model API is temporarily rate-limited. Please wait 30-60 seconds and try again."
	case HasCode(err, CodeProviderAuthFailure):
		return "The model provider rejected the configured credentials. Check your API token."
	case HasCode(err, CodeProviderRequestInvalid):
		return "The model provider rejected the request. Try rephrasing or shortening your message."
	case IsUpstreamFailure(err):
		return "The model provider could not be reached. Check your connection and try again."
	case HasCode(err, CodeServerAgentUnavailable):
		return "The assistant is not available. Please contact the administrator."
	default:
		return "An unexpected error occurred while processing your request. Please try again."
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
