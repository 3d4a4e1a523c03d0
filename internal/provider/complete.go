// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// Complete issues req against p and drains the event stream into a single
// text. Failures are classified so callers can tell transient rate limits
// from permanent errors.
func Complete(ctx context.Context, p Provider, req ChatRequest) (string, Usage, error) {
	var usage Usage

	if err := req.Validate(); err != nil {
		return "", usage, solerr.With(err, solerr.FieldProvider(p.Name()))
	}

	events, err := p.Chat(ctx, req)
	if err != nil {
		return "", usage, Classify(p.Name(), err)
	}

	var b strings.Builder
	for ev := range events {
		switch ev.Type {
		case EventTypeTextDelta:
			b.WriteString(ev.Text)
		case EventTypeUsage:
			usage.Add(ev.Usage)
		case EventTypeError:
			// Drain so the producer goroutine can exit.
			for range events {
			}
			if ev.Err == nil {
				return "", usage, solerr.New(solerr.CodeProviderUpstreamFailure,
					p.Name()+": stream ended with an error event", solerr.FieldProvider(p.Name()))
			}
			return "", usage, Classify(p.Name(), ev.Err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", usage, Classify(p.Name(), err)
	}
	return b.String(), usage, nil
}

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// Classify maps a provider failure onto an error code. Errors that already
// carry a code are returned unchanged.
func Classify(providerName string, err error) error {
	if err == nil {
		return nil
	}
	if solerr.CodeOf(err) != "" {
		return err
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return ClassifyStatus(providerName, sc.HTTPStatusCode(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return solerr.Wrap(err, solerr.CodeProviderUpstreamFailure,
			providerName+": request timed out or was cancelled",
			solerr.FieldProvider(providerName))
	}
	return solerr.Wrap(err, solerr.CodeProviderUpstreamFailure,
		providerName+": request failed",
		solerr.FieldProvider(providerName))
}

// ClassifyStatus maps an upstream HTTP status onto an error code. Only 429
// is treated as transient.
func ClassifyStatus(providerName string, status int, err error) error {
	if err == nil {
		err = fmt.Errorf("HTTP %d", status)
	}
	fields := []solerr.Attr{
		solerr.FieldProvider(providerName),
		solerr.Field("status", status),
	}

	switch {
	case status == http.StatusTooManyRequests:
		return solerr.Wrap(err, solerr.CodeProviderRateLimited,
			providerName+": rate limited", fields...)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return solerr.Wrap(err, solerr.CodeProviderAuthFailure,
			providerName+": credentials rejected", fields...)
	case status == http.StatusBadRequest || status == http.StatusNotFound ||
		status == http.StatusRequestEntityTooLarge || status == http.StatusUnprocessableEntity:
		return solerr.Wrap(err, solerr.CodeProviderRequestInvalid,
			providerName+": request rejected", fields...)
	default:
		return solerr.Wrap(err, solerr.CodeProviderUpstreamFailure,
			providerName+": upstream failure", fields...)
	}
}
