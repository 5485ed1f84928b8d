package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/embedchat/embedchat-gateway/internal/testutil"
)

func testRequest() *ChatCompletionRequest {
	return &ChatCompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []ChatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "Say hello."},
		},
	}
}

func TestCreateChatCompletion(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 2, "total_tokens": 22}
		}`))
	}))
	defer srv.Close()

	client := NewClient("sk-server-key", WithBaseURL(srv.URL))
	resp, err := client.CreateChatCompletion(context.Background(), testRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer sk-server-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("Text() = %q", resp.Text())
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 22 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestCreateChatCompletionKeyOverride(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewClient("sk-server-key", WithBaseURL(srv.URL))
	opts := &RequestOptions{APIKey: "sk-caller-key"}
	if _, err := client.CreateChatCompletion(context.Background(), testRequest(), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer sk-caller-key" {
		t.Errorf("Authorization = %q, want caller override", gotAuth)
	}
}

func TestCreateChatCompletionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	client := NewClient("sk-bad-key", WithBaseURL(srv.URL))
	_, err := client.CreateChatCompletion(context.Background(), testRequest(), nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Type != "invalid_request_error" {
		t.Errorf("type = %q", apiErr.Type)
	}
}

func TestCreateChatCompletionVCR(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "chat_completion")
	defer cleanup()

	client := NewClient("sk-test-key", WithHTTPClient(testutil.VCRHTTPClient(r)))
	resp, err := client.CreateChatCompletion(context.Background(), testRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() == "" {
		t.Error("empty completion text")
	}
	if resp.Usage == nil || resp.Usage.TotalTokens == 0 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}
