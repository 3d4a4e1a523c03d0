// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := solerr.New(
		solerr.CodeAgentInputInvalid,
		"empty message",
		solerr.FieldSessionID("sess-123"),
		solerr.Field("provider", "github"),
	)

	require.Error(t, err)
	assert.Equal(t, solerr.CodeAgentInputInvalid, solerr.CodeOf(err))
	assert.True(t, solerr.HasCode(err, solerr.CodeAgentInputInvalid))

	fields := solerr.FieldsOf(err)
	assert.Equal(t, "sess-123", fields["session_id"])
	assert.Equal(t, "github", fields["provider"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("connection reset")
	err := solerr.Errorf(solerr.CodeProviderUpstreamFailure, "calling provider: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, solerr.CodeProviderUpstreamFailure, solerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("bad window")
	err := solerr.Wrap(root, solerr.CodeStoreInvalidInput, "creating store", solerr.FieldSessionID("s-1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, solerr.IsInvalidInput(err))
	assert.Equal(t, "s-1", solerr.FieldsOf(err)["session_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, solerr.Wrap(nil, solerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, solerr.Wrapf(nil, solerr.CodeServerInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, solerr.With(nil, solerr.FieldProvider("x")))
}

func TestWrappedCodedErrorKeepsInnermostCode(t *testing.T) {
	inner := solerr.New(solerr.CodeProviderRateLimited, "429")
	outer := solerr.Wrapf(inner, solerr.CodeAgentLoopFailure, "handling turn")

	assert.Equal(t, solerr.CodeProviderRateLimited, solerr.CodeOf(outer))
	assert.True(t, solerr.IsTransient(outer))
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := solerr.With(stderrors.New("something broke"), solerr.FieldIntent("general"))

	assert.Equal(t, solerr.CodeServerInternalFailure, solerr.CodeOf(enriched))
	assert.Equal(t, "general", solerr.FieldsOf(enriched)["intent"])
}

func TestCodeOfPlainAndNil(t *testing.T) {
	assert.Equal(t, solerr.Code(""), solerr.CodeOf(nil))
	assert.Equal(t, solerr.Code(""), solerr.CodeOf(stderrors.New("plain")))
	assert.Nil(t, solerr.FieldsOf(stderrors.New("plain")))
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   solerr.Code
		status int
	}{
		{"validation", solerr.CodeAgentInputInvalid, http.StatusBadRequest},
		{"request invalid", solerr.CodeServerRequestInvalid, http.StatusBadRequest},
		{"rate limit exhausted", solerr.CodeProviderRateLimitExhausted, http.StatusTooManyRequests},
		{"transient", solerr.CodeProviderRateLimited, http.StatusTooManyRequests},
		{"upstream", solerr.CodeProviderUpstreamFailure, http.StatusBadGateway},
		{"provider auth", solerr.CodeProviderAuthFailure, http.StatusBadGateway},
		{"not found", solerr.CodeProviderNotFound, http.StatusNotFound},
		{"unavailable", solerr.CodeServerAgentUnavailable, http.StatusServiceUnavailable},
		{"blocked input", solerr.CodeScannerInputBlocked, http.StatusUnprocessableEntity},
		{"internal", solerr.CodeAgentLoopFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := solerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, solerr.HTTPStatus(err))
		})
	}
}

func TestClassificationOnPlainError(t *testing.T) {
	plain := stderrors.New("plain")
	assert.False(t, solerr.IsTransient(plain))
	assert.False(t, solerr.IsRateLimitExhausted(plain))
	assert.False(t, solerr.IsUpstreamFailure(plain))
	assert.Equal(t, http.StatusInternalServerError, solerr.HTTPStatus(plain))
	assert.Equal(t, http.StatusInternalServerError, solerr.HTTPStatus(nil))
}

func TestUserMessageHidesProviderDetail(t *testing.T) {
	err := solerr.Wrapf(
		stderrors.New(`POST "https://models.github.ai/inference": 401 {"error":"secret-body"}`),
		solerr.CodeProviderAuthFailure, "github: chat",
	)

	msg := solerr.UserMessage(err)
	assert.NotContains(t, msg, "secret-body")
	assert.Contains(t, msg, "API token")
}

func TestUserMessageRateLimit(t *testing.T) {
	err := solerr.New(solerr.CodeProviderRateLimitExhausted, "retries exhausted")
	assert.Contains(t, solerr.UserMessage(err), "wait")
	assert.Empty(t, solerr.UserMessage(nil))
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")
	joined := solerr.Join(a, b)

	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, solerr.CodeServerInternalFailure, solerr.CodeOf(joined))
}
