package llmclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clonescout/internal/schema"
	"clonescout/internal/tester"
)

func chatCompletion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 11, "completion_tokens": 5, "total_tokens": 16},
	})
	return string(b)
}

func TestOpenAIClient_GenerateStructuredSendsSchemaAndJSONFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tester.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		tester.Eq(t, r.Header.Get("Authorization"), "Bearer sk-test")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Credential{Provider: OpenAI, APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	tester.NoErr(t, err)

	resp, err := c.GenerateStructured(context.Background(), Request{
		Prompt:       "Analyze example.com",
		SystemPrompt: "You are a venture analyst.",
		Schema:       schema.Obj(schema.F("ok", schema.Bool())),
	})
	tester.NoErr(t, err)
	tester.Eq(t, resp.Content, `{"ok":true}`)
	tester.True(t, resp.Usage != nil, "usage should be reported")
	tester.Eq(t, resp.Usage.TotalTokens, int64(16))

	tester.Eq(t, body["model"].(string), "gpt-4o")
	tester.Eq(t, body["response_format"].(map[string]any)["type"].(string), "json_object")
	msgs := body["messages"].([]any)
	tester.Eq(t, len(msgs), 2)
	sys := msgs[0].(map[string]any)["content"].(string)
	tester.Contains(t, sys, "Respond with valid JSON only.")
	user := msgs[1].(map[string]any)["content"].(string)
	tester.Contains(t, user, "Respond with a valid JSON object matching this schema:")
	tester.Contains(t, user, "Remember: Be concise.")
}

func TestOpenAIClient_UnauthorizedIsAuthentication(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Credential{Provider: OpenAI, APIKey: "bad", BaseURL: srv.URL + "/v1"})
	tester.NoErr(t, err)

	_, err = c.Generate(context.Background(), Request{Prompt: "hi"})
	tester.ErrIs(t, err, ErrAuthentication)
	tester.Eq(t, Classify(err), KindAuthentication)
}

func TestOpenAIClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream down"}}`)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Credential{Provider: Grok, APIKey: "xai", BaseURL: srv.URL + "/v1"})
	tester.NoErr(t, err)
	tester.Eq(t, c.Name(), "grok:grok-2-1212")

	_, err = c.Generate(context.Background(), Request{Prompt: "hi"})
	tester.ErrIs(t, err, ErrProviderUnavailable)
}

func TestOpenAIClient_EmptyStructuredContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(""))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Credential{APIKey: "sk", BaseURL: srv.URL + "/v1"})
	tester.NoErr(t, err)
	_, err = c.GenerateStructured(context.Background(), Request{Prompt: "x"})
	tester.ErrIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_TestConnection(t *testing.T) {
	reply := "OK"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion(reply))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient(Credential{APIKey: "sk", BaseURL: srv.URL + "/v1"})
	tester.NoErr(t, err)
	tester.True(t, c.TestConnection(context.Background()))

	reply = "nope"
	tester.False(t, c.TestConnection(context.Background()))
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Credential{Provider: OpenAI, APIKey: "  "})
	tester.Err(t, err)
	tester.True(t, IsPermanent(err), "missing key should be permanent")
}
