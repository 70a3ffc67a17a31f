package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSlack_PostsBlocks(t *testing.T) {
	var got slackMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if err := s.Send(context.Background(), "[CloudPulse] ERROR: x unreachable", "Error: timeout"); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := slackMessage{
		Text: "[CloudPulse] ERROR: x unreachable",
		Blocks: []slackBlock{
			{Type: "header", Text: slackText{Type: "plain_text", Text: "[CloudPulse] ERROR: x unreachable"}},
			{Type: "section", Text: slackText{Type: "mrkdwn", Text: "```Error: timeout```"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSlack_Non2xxIncludesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("invalid_token\n"))
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), "X", "Y")
	if err == nil || errors.Is(err, ErrDisabled) {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if !strings.Contains(err.Error(), "403: invalid_token") {
		t.Fatalf("error lacks status and body: %v", err)
	}
}

func TestSlack_NoWebhookIsDisabled(t *testing.T) {
	if err := NewSlack("").Send(context.Background(), "X", "Y"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("want ErrDisabled, got %v", err)
	}
}
