package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"clonescout/internal/gateway/repository/store"
	"clonescout/internal/llmclient"
)

func fakeFactory(fc *llmclient.FakeClient, seen *[]llmclient.Credential) ClientFactory {
	return func(_ context.Context, cred llmclient.Credential) (llmclient.Client, error) {
		*seen = append(*seen, cred)
		return fc, nil
	}
}

func TestActive_NoProvider(t *testing.T) {
	s := New(store.NewMemory(), nil)
	_, err := s.Active(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNoActiveProvider)
	require.Equal(t, "No active AI provider configured", err.Error())

	_, _, err = s.Pipeline(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNoActiveProvider)
}

func TestCreate_RejectsUnknownKind(t *testing.T) {
	s := New(store.NewMemory(), nil)
	_, err := s.Create(context.Background(), "u1", CreateInput{Provider: "claude", APIKey: "k"})
	require.Error(t, err)
	require.True(t, llmclient.IsPermanent(err))
}

func TestPipeline_UsesActiveCredential(t *testing.T) {
	ctx := context.Background()
	var seen []llmclient.Credential
	fc := llmclient.Reply(`{"ok": true}`)
	s := New(store.NewMemory(), nil, WithClientFactory(fakeFactory(fc, &seen)))

	_, err := s.Create(ctx, "u1", CreateInput{Provider: "OpenAI", APIKey: " old ", IsActive: true})
	require.NoError(t, err)
	_, err = s.Create(ctx, "u1", CreateInput{Provider: "gemini", APIKey: "gk", Model: "gemini-2.0-flash", IsActive: true})
	require.NoError(t, err)

	pipe, p, err := s.Pipeline(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "gemini", p.Provider)
	require.Equal(t, []llmclient.Credential{{Provider: llmclient.Gemini, APIKey: "gk", Model: "gemini-2.0-flash"}}, seen)

	out, err := pipe.GenerateStructured(ctx, "p", nil, "")
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
}

func TestTest_ProbesClient(t *testing.T) {
	ctx := context.Background()
	var seen []llmclient.Credential

	s := New(store.NewMemory(), nil, WithClientFactory(fakeFactory(llmclient.Reply("OK"), &seen)))
	ok, err := s.Test(ctx, "grok", " xk ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "xk", seen[0].APIKey)

	s = New(store.NewMemory(), nil, WithClientFactory(fakeFactory(llmclient.Failing(errors.New("boom")), &seen)))
	ok, err = s.Test(ctx, "grok", "xk")
	require.NoError(t, err)
	require.False(t, ok)

	s = New(store.NewMemory(), nil)
	_, err = s.Test(ctx, "openai", "")
	require.Error(t, err, "empty key cannot build a client")
}
