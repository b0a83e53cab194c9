package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

func TestPublishSummarySendsForm(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{APIURL: srv.URL + "/", BotToken: "T0K", ChatID: "42"}, nil)
	if err := n.PublishSummary(context.Background(), "published 3 posts"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if gotPath != "/botT0K/sendMessage" || gotChat != "42" || gotText != "published 3 posts" {
		t.Fatalf("unexpected request path=%s chat=%s text=%q", gotPath, gotChat, gotText)
	}
}

func TestPublishSummaryErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier(config.TelegramConfig{}, nil).PublishSummary(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{APIURL: srv.URL, BotToken: "t", ChatID: "1"}, nil)
	err := n.PublishSummary(context.Background(), "x")
	if err == nil || !retry.IsTransient(err) {
		t.Fatalf("expected transient status error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 5000)
	got := truncate(long, maxMessageRunes)
	if utf8.RuneCountInString(got) != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, utf8.RuneCountInString(got))
	}
	if truncate("short", 10) != "short" {
		t.Fatalf("short text must be unchanged")
	}
}
