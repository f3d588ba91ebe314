package llmclient

import (
	"context"
	"errors"
	"testing"

	"clonescout/internal/schema"
	"clonescout/internal/tester"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Gemini ")
	tester.NoErr(t, err)
	tester.Eq(t, k, Gemini)

	_, err = ParseKind("claude")
	tester.Err(t, err)
	tester.True(t, IsPermanent(err))
}

func TestNew_SelectsByKind(t *testing.T) {
	c, err := New(context.Background(), Credential{Provider: "GROK", APIKey: "k"})
	tester.NoErr(t, err)
	tester.Eq(t, c.Name(), "grok:grok-2-1212")

	c, err = New(context.Background(), Credential{Provider: OpenAI, APIKey: "k", Model: "gpt-4o-mini"})
	tester.NoErr(t, err)
	tester.Eq(t, c.Name(), "openai:gpt-4o-mini")

	_, err = New(context.Background(), Credential{Provider: "nope", APIKey: "k"})
	tester.True(t, IsPermanent(err))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindUnknown},
		{errors.New("Incorrect API key provided"), KindAuthentication},
		{errors.New("Rate limit reached for requests"), KindRateLimited},
		{errors.New("service temporarily unavailable"), KindProviderUnavailable},
		{errors.New("boom"), KindUnknown},
		{&ProviderError{Kind: KindRateLimited, Err: errors.New("slow down")}, KindRateLimited},
	}
	for _, c := range cases {
		tester.Eq(t, Classify(c.err), c.want, c.err)
	}
}

func TestVendorError(t *testing.T) {
	err := vendorError("openai:gpt-4o", 403, errors.New("forbidden"))
	tester.ErrIs(t, err, ErrAuthentication)
	tester.Eq(t, err.Error(), "forbidden")

	err = vendorError("openai:gpt-4o", 0, errors.New("dial tcp: i/o timeout"))
	tester.ErrIs(t, err, ErrProviderUnavailable)

	err = vendorError("openai:gpt-4o", 0, context.Canceled)
	tester.True(t, IsPermanent(err))
}

func TestStructuredPrompts(t *testing.T) {
	s := schema.Obj(schema.F("name", schema.Str()))
	tester.Eq(t, StructuredSystemPrompt("sys", true),
		"sys\nIMPORTANT: Keep all text responses concise (max 2-3 sentences per field). Respond with valid JSON only.")
	tester.Eq(t, StructuredSystemPrompt("sys", false),
		"sys\nIMPORTANT: Keep all text responses concise (max 2-3 sentences per field).")

	got := StructuredUserPrompt("do it", s, "Remember:")
	want := "do it\n\nRespond with a valid JSON object matching this schema:\n" + s.Describe() +
		"\n\nRemember: Be concise. Each text field should be 2-3 sentences maximum."
	tester.Eq(t, got, want)
}

func TestFakeClient_ReplaysScript(t *testing.T) {
	boom := errors.New("boom")
	f := NewFakeClient(Step{Err: boom}, Step{Content: "OK"})
	ctx := context.Background()

	_, err := f.GenerateStructured(ctx, Request{Prompt: "a"})
	tester.ErrIs(t, err, boom)
	resp, err := f.Generate(ctx, Request{Prompt: "b"})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Content, "OK")
	tester.True(t, f.TestConnection(ctx))
	tester.Eq(t, f.Calls(), 3)
	tester.Eq(t, f.Requests()[2].Prompt, connectionProbe)
}
