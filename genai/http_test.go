package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionServer(t *testing.T, handler func(w http.ResponseWriter, body chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		handler(w, req)
	}))
}

func TestComplete_RoundTrip(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, req chatRequest) {
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "<html></html>"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"total_tokens": 42},
		})
	})
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model"}, nil)
	resp, err := c.Complete(context.Background(), Request{
		Prompt:       "build it",
		SystemPrompt: "you are a builder",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "<html></html>" || resp.TokensUsed != 42 {
		t.Fatalf("response: %+v", resp)
	}
}

func TestComplete_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL}, nil)
	if _, err := c.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, _ chatRequest) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL}, nil)
	if _, err := c.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestComplete_Timeout(t *testing.T) {
	// WHAT: a hung upstream surfaces as a plain error within the
	// configured timeout.
	// WHY: timeout and malformed response share one recovery path.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches the connection and
		// cancels r.Context() when the timed-out client disconnects;
		// otherwise srv.Close() deadlocks on this active handler.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
}
