package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"clonescout/internal/analysis"
	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/gateway/service/analyses"
	"clonescout/internal/gateway/service/providers"
	"clonescout/internal/llmclient"
	"clonescout/internal/structured"
	"clonescout/internal/workflow"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"request", &requestError{msg: "url is required"}, http.StatusBadRequest, "url is required"},
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, msgNotFound},
		{"no provider", providers.ErrNoActiveProvider, http.StatusBadRequest, providers.ErrNoActiveProvider.Error()},
		{"batch size", analysis.ErrBatchSize, http.StatusBadRequest, analysis.ErrBatchSize.Error()},
		{"empty query", analyses.ErrEmptyQuery, http.StatusBadRequest, analyses.ErrEmptyQuery.Error()},
		{"unknown stage", fmt.Errorf("%w: 9", workflow.ErrUnknownStage), http.StatusBadRequest, "unknown workflow stage: 9"},
		{
			"auth",
			fmt.Errorf("%w: %w", structured.ErrGenerationFailed, &llmclient.ProviderError{Kind: llmclient.KindAuthentication, Err: errors.New("401")}),
			http.StatusBadRequest, msgInvalidAPIKey,
		},
		{
			"unavailable",
			&llmclient.ProviderError{Kind: llmclient.KindProviderUnavailable, Err: errors.New("503")},
			http.StatusServiceUnavailable, msgUnavailable,
		},
		{"rate limited by text", errors.New("Rate limit exceeded for model"), http.StatusTooManyRequests, msgRateLimited},
		{"permanent", llmclient.NewPermanentError(errors.New("bad model")), http.StatusBadRequest, "bad model"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "disk full"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			status, msg := describe(c.err)
			require.Equal(t, c.status, status)
			require.Equal(t, c.msg, msg)
		})
	}
}

func TestMaskKey(t *testing.T) {
	require.Equal(t, "****", maskKey(""))
	require.Equal(t, "****", maskKey("12345678"))
	require.Equal(t, "sk-...cdef", maskKey("sk-0123456789abcdef"))
}

func TestValidationMessage(t *testing.T) {
	h := New(nil, nil, nil, nil)

	err := h.validate.Struct(&createProviderRequest{Provider: "claude"})
	require.Error(t, err)
	msg := validationMessage(err)
	require.Contains(t, msg, "Provider must be one of: openai gemini grok")
	require.Contains(t, msg, "APIKey is required")

	require.Equal(t, msgInvalidRequest, validationMessage(errors.New("plain")))
}
