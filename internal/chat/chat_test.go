package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/notebot/internal/models"
)

func TestSanitize_StripsExtraFieldsAndMalformed(t *testing.T) {
	history := []models.ChatMessage{
		{Role: "user", Content: "Hello", TS: time.Now()},
		{Role: "assistant", Content: "Hi"},
		{Role: "system", Content: "sneaky"},
		{Role: "user", Content: "   "},
	}
	got := Sanitize(history)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%v)", len(got), got)
	}
	if got[0].Role != "user" || got[0].Content != "Hello" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Role != "assistant" || got[1].Content != "Hi" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestSanitizeWire_DropsMalformedEntries(t *testing.T) {
	in := []WireMessage{
		{Role: "user", Content: "keep"},
		{Role: "", Content: "no role"},
		{Role: "user", Content: ""},
		{Role: "user", Content: 5},
		{Role: 12, Content: "numeric role"},
		{Role: "user", Content: nil},
	}
	got := SanitizeWire(in)
	if len(got) != 1 || got[0].Content != "keep" {
		t.Errorf("got %v", got)
	}
}

func TestSanitizeWire_SurvivesMixedTypedJSON(t *testing.T) {
	var in []WireMessage
	raw := `[{"role":"user","content":"hi"},{"role":"user","content":5},{"role":true,"content":"x"}]`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := SanitizeWire(in)
	if len(got) != 1 || got[0].Role != "user" || got[0].Content != "hi" {
		t.Errorf("got %v", got)
	}
}

func TestSimulated_KeywordBranches(t *testing.T) {
	s := NewSimulated(0, 0)
	cases := []struct{ in, want string }{
		{"Please SUMMARIZE this", simulatedSummary},
		{"give me action items", simulatedActions},
		{"rewrite this paragraph", simulatedRewrite},
		{"hello there", simulatedDefault},
	}
	for _, c := range cases {
		got, err := s.Reply(context.Background(), []models.ChatMessage{{Role: "user", Content: c.in}})
		if err != nil {
			t.Fatalf("Reply(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Reply(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSimulated_ContextCancelled(t *testing.T) {
	s := NewSimulated(time.Second, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Reply(ctx, []models.ChatMessage{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func upstreamStub(t *testing.T, status int, body string, capture *completionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode upstream request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestClient_Complete(t *testing.T) {
	var req completionRequest
	srv := upstreamStub(t, http.StatusOK, `{"choices":[{"message":{"content":"Hi there"}}]}`, &req)
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, APIKey: "k", Model: "test-model"})
	got, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "Hello"}}, "")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Hi there" {
		t.Errorf("reply = %q", got)
	}
	if req.Model != "test-model" {
		t.Errorf("model = %q, want test-model", req.Model)
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", req.Temperature)
	}
}

func TestClient_ModelPrecedence(t *testing.T) {
	c := NewClient(ClientOptions{Endpoint: "http://x", APIKey: "k", Model: "configured"})
	if got := c.ResolveModel("requested"); got != "requested" {
		t.Errorf("got %q", got)
	}
	if got := c.ResolveModel(""); got != "configured" {
		t.Errorf("got %q", got)
	}
	bare := NewClient(ClientOptions{Endpoint: "http://x", APIKey: "k"})
	if got := bare.ResolveModel(""); got != DefaultModel {
		t.Errorf("got %q, want %q", got, DefaultModel)
	}
}

func TestClient_HistoryLimitAndSystemPrompt(t *testing.T) {
	var req completionRequest
	srv := upstreamStub(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, &req)
	defer srv.Close()

	c := NewClient(ClientOptions{
		Endpoint:     srv.URL,
		APIKey:       "k",
		HistoryLimit: 2,
		SystemPrompt: "be brief",
	})
	msgs := []Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	if _, err := c.Complete(context.Background(), msgs, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("messages = %d, want 3 (system + last 2)", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "be brief" {
		t.Errorf("first = %+v, want system prompt", req.Messages[0])
	}
	if req.Messages[1].Content != "two" || req.Messages[2].Content != "three" {
		t.Errorf("history not truncated to most recent: %+v", req.Messages)
	}
}

func TestClient_UpstreamError(t *testing.T) {
	srv := upstreamStub(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, nil)
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, "")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", ue.Status)
	}
	if ue.Message != "rate limited" {
		t.Errorf("message = %q", ue.Message)
	}
}

func TestClient_UpstreamErrorFallbackMessage(t *testing.T) {
	srv := upstreamStub(t, http.StatusInternalServerError, `not json`, nil)
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, "")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(ue.Message, "Upstream error") {
		t.Errorf("message = %q, want generic fallback", ue.Message)
	}
}

func TestClient_NoReplyContent(t *testing.T) {
	srv := upstreamStub(t, http.StatusOK, `{"choices":[]}`, nil)
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, APIKey: "k"})
	_, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, "")
	if !errors.Is(err, ErrNoReply) {
		t.Errorf("err = %v, want ErrNoReply", err)
	}
}

func TestClient_MissingKey(t *testing.T) {
	c := NewClient(ClientOptions{Endpoint: "http://unused"})
	if c.Configured() {
		t.Error("Configured should be false without a key")
	}
	if _, err := c.Complete(context.Background(), nil, ""); err == nil {
		t.Error("expected error without API key")
	}
}
