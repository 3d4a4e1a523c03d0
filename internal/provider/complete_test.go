// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package provider_test

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/provider"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_DrainsStream(t *testing.T) {
	p := newMockProvider("mock", true)

	text, usage, err := provider.Complete(context.Background(), p, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, provider.Usage{InputTokens: 10, OutputTokens: 5}, usage)
	assert.Equal(t, "gpt-4.1-mini", p.lastReq.Model)
}

func TestComplete_InvalidRequestNeverReachesProvider(t *testing.T) {
	p := newMockProvider("mock", true)
	req := validRequest()
	req.Options.Temperature = 5

	_, _, err := provider.Complete(context.Background(), p, req)
	require.Error(t, err)
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderRequestInvalid))
	assert.Empty(t, p.lastReq.Model, "provider must not be called")
}

func TestComplete_ErrorEvent(t *testing.T) {
	p := newMockProvider("mock", true)
	p.events = []provider.ChatEvent{
		{Type: provider.EventTypeTextDelta, Text: "partial"},
		{Type: provider.EventTypeError, Err: &statusError{status: http.StatusTooManyRequests}},
		{Type: provider.EventTypeDone},
	}

	text, _, err := provider.Complete(context.Background(), p, validRequest())
	require.Error(t, err)
	assert.Empty(t, text, "partial text must not leak on failure")
	assert.True(t, solerr.IsTransient(err))
}

func TestComplete_ErrorEventWithoutCause(t *testing.T) {
	p := newMockProvider("mock", true)
	p.events = []provider.ChatEvent{{Type: provider.EventTypeError}}

	_, _, err := provider.Complete(context.Background(), p, validRequest())
	require.Error(t, err)
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderUpstreamFailure))
}

func TestComplete_ChatError(t *testing.T) {
	p := newMockProvider("mock", true)
	p.chatErr = &statusError{status: http.StatusUnauthorized}

	_, _, err := provider.Complete(context.Background(), p, validRequest())
	require.Error(t, err)
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderAuthFailure))
	assert.Equal(t, "mock", solerr.FieldsOf(err)["provider"])
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   solerr.Code
	}{
		{http.StatusTooManyRequests, solerr.CodeProviderRateLimited},
		{http.StatusUnauthorized, solerr.CodeProviderAuthFailure},
		{http.StatusForbidden, solerr.CodeProviderAuthFailure},
		{http.StatusBadRequest, solerr.CodeProviderRequestInvalid},
		{http.StatusNotFound, solerr.CodeProviderRequestInvalid},
		{http.StatusUnprocessableEntity, solerr.CodeProviderRequestInvalid},
		{http.StatusInternalServerError, solerr.CodeProviderUpstreamFailure},
		{http.StatusServiceUnavailable, solerr.CodeProviderUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := provider.ClassifyStatus("github", tt.status, stderrors.New("boom"))
			assert.Equal(t, tt.want, solerr.CodeOf(err))
			assert.Equal(t, tt.status, solerr.FieldsOf(err)["status"])
		})
	}

	assert.Error(t, provider.ClassifyStatus("github", http.StatusTooManyRequests, nil))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, provider.Classify("x", nil))

	coded := solerr.New(solerr.CodeProviderRequestInvalid, "already classified")
	got := provider.Classify("x", coded)
	assert.Equal(t, solerr.CodeProviderRequestInvalid, solerr.CodeOf(got))
	assert.Equal(t, coded.Error(), got.Error())

	err := provider.Classify("x", context.DeadlineExceeded)
	assert.True(t, solerr.HasCode(err, solerr.CodeProviderUpstreamFailure))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = provider.Classify("x", stderrors.New("dial tcp: connection refused"))
	assert.True(t, solerr.IsUpstreamFailure(err))
	assert.False(t, solerr.IsTransient(err))
}
