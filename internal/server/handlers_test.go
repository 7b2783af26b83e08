package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/intentbot/internal/chatbot"
	"github.com/hyperjump/intentbot/internal/config"
	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/models"
	"github.com/hyperjump/intentbot/internal/snapshot"
	"github.com/hyperjump/intentbot/internal/storage"
	"github.com/hyperjump/intentbot/internal/trainer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubResponder struct {
	reply chatbot.Reply
	got   []string
}

func (s *stubResponder) Respond(_ context.Context, message string) chatbot.Reply {
	s.got = append(s.got, message)
	return s.reply
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage:  config.StorageConfig{DatabasePath: filepath.Join(dir, "intentbot.db")},
		Snapshot: config.SnapshotConfig{Path: filepath.Join(dir, "model.json")},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func openStore(t *testing.T, cfg *config.Config) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCorpus() *corpus.Corpus {
	return &corpus.Corpus{Intents: []corpus.Intent{
		{Tag: "greeting", Patterns: []string{"hello", "hi there", "good morning"}, Responses: []string{"Hello!"}},
		{Tag: "hours", Patterns: []string{"when are you open", "opening hours", "what time do you close"}, Responses: []string{"We open at 6am."}},
	}}
}

func testHolder(t *testing.T) *chatbot.Holder {
	t.Helper()
	c := testCorpus()
	tr := trainer.New(trainer.DefaultConfig(), trainer.WithRand(rand.New(rand.NewPCG(3, 4))))
	res, err := tr.Fit(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	snap := snapshot.FromTraining(res)
	return chatbot.NewHolder(func(context.Context) (*chatbot.Service, error) {
		return chatbot.New(snap, c)
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	resp := &stubResponder{reply: chatbot.Reply{Text: "Hello!", Tag: "greeting", Confidence: 0.93, Matched: true}}
	srv := NewServer(resp, nil, store, cfg, zap.NewNop())

	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/chat", `{"message":"hi there"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: %s", ct)
	}
	var out models.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Response != "Hello!" || out.Tag != "greeting" || !out.Matched {
		t.Errorf("response: %+v", out)
	}
	if len(resp.got) != 1 || resp.got[0] != "hi there" {
		t.Errorf("responder got %v", resp.got)
	}

	exchanges, err := store.ListExchanges(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(exchanges) != 1 || exchanges[0].Message != "hi there" || exchanges[0].Engine != config.EngineClassifier {
		t.Errorf("exchanges: %+v", exchanges)
	}
}

func TestHandleChat_LogsMessageLengthInRunes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	resp := &stubResponder{reply: chatbot.Reply{Text: "Hola"}}
	srv := NewServer(resp, nil, nil, testConfig(t), zap.New(core))

	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/chat", `{"message":"¿qué tal?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	entries := logs.FilterMessage("chat request").All()
	if len(entries) != 1 {
		t.Fatalf("chat request logs: %d", len(entries))
	}
	if got := entries[0].ContextMap()["message_len"]; got != int64(9) {
		t.Errorf("message_len = %v, want 9", got)
	}
}

func TestHandleChat_BadRequests(t *testing.T) {
	srv := NewServer(&stubResponder{}, nil, nil, testConfig(t), nil)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"wrong type", `{"message": 42}`},
		{"too long", `{"message":"` + strings.Repeat("a", models.MaxMessageLength+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv.Router(), http.MethodPost, "/api/v1/chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d", rec.Code)
			}
			var out map[string]string
			_ = json.NewDecoder(rec.Body).Decode(&out)
			if out["error"] == "" {
				t.Errorf("missing error message: %v", out)
			}
		})
	}
}

func TestHandleChat_EmptyMessageGetsFallback(t *testing.T) {
	holder := testHolder(t)
	srv := NewServer(holder, holder, nil, testConfig(t), nil)
	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/chat", `{"message":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var out models.ChatResponse
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out.Response != chatbot.DefaultFallback || out.Matched {
		t.Errorf("response: %+v", out)
	}
}

func TestHandleStatus(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)
	holder := testHolder(t)
	srv := NewServer(holder, holder, store, cfg, zap.NewNop())

	_ = do(t, srv.Router(), http.MethodPost, "/api/v1/chat", `{"message":"hello"}`)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	var out models.StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Engine != config.EngineClassifier || out.Backend != "sparse" {
		t.Errorf("engine/backend: %+v", out)
	}
	if out.OutputSize != 2 || out.HiddenSize != 8 || out.SnapshotID == "" {
		t.Errorf("snapshot fields: %+v", out)
	}
	if out.Exchanges != 1 {
		t.Errorf("exchanges: got %d", out.Exchanges)
	}
	if out.DiskUsageBytes <= 0 {
		t.Errorf("disk usage: got %d", out.DiskUsageBytes)
	}
}

func TestHandleStatus_LoadFailure(t *testing.T) {
	holder := chatbot.NewHolder(func(context.Context) (*chatbot.Service, error) {
		return nil, errors.New("snapshot missing")
	})
	srv := NewServer(holder, holder, nil, testConfig(t), nil)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandleReload(t *testing.T) {
	holder := testHolder(t)
	srv := NewServer(holder, holder, nil, testConfig(t), nil)
	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out["status"] != "reloaded" || out["snapshot_id"] == "" {
		t.Errorf("body: %v", out)
	}

	genai := NewServer(&stubResponder{}, nil, nil, testConfig(t), nil)
	if rec := do(t, genai.Router(), http.MethodPost, "/api/v1/reload", ""); rec.Code != http.StatusConflict {
		t.Errorf("reload without holder: got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(&stubResponder{}, nil, nil, nil, nil)
	rec := do(t, srv.Router(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var out map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if out["status"] != "ok" {
		t.Errorf("body: %v", out)
	}
}

func TestStop_NotStarted(t *testing.T) {
	srv := NewServer(&stubResponder{}, nil, nil, nil, nil)
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
