package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avvvet/coffeebuddy/internal/models"
)

type echoProcessor struct {
	got []*models.InboundMessage
}

func (e *echoProcessor) ProcessMessage(_ context.Context, msg *models.InboundMessage) string {
	e.got = append(e.got, msg)
	return "echo: " + msg.Text
}

func TestWebhookDeliversMessage(t *testing.T) {
	proc := &echoProcessor{}
	srv := httptest.NewServer(NewWebhookServer(":0", proc).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook", "application/json",
		strings.NewReader(`{"user_id":"42","display_name":"Ann","text":"one latte"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var out models.OutboundReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != "42" || out.Reply != "echo: one latte" {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if len(proc.got) != 1 || proc.got[0].DisplayName != "Ann" {
		t.Fatalf("unexpected inbound: %+v", proc.got)
	}
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	proc := &echoProcessor{}
	srv := httptest.NewServer(NewWebhookServer(":0", proc).Router())
	defer srv.Close()

	for _, body := range []string{
		`not json`,
		`{"display_name":"Ann","text":"hi"}`,
		`{"user_id":"42","text":"   "}`,
	} {
		resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
	if len(proc.got) != 0 {
		t.Fatalf("invalid requests reached the pipeline: %d", len(proc.got))
	}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewWebhookServer(":0", &echoProcessor{}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}
