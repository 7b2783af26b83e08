package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/internal/models"
	"github.com/hyperjump/intentbot/internal/snapshot"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteReply(t *testing.T) {
	resp := &models.ChatResponse{Response: "Hello!", Tag: "greeting", Confidence: 0.9, Matched: true}
	var buf bytes.Buffer
	if err := WriteReply(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Hello!\n" {
		t.Errorf("text output: %q", buf.String())
	}
	buf.Reset()
	if err := WriteReply(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.ChatResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded != *resp {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestSummarizeAndWrite(t *testing.T) {
	snap := &snapshot.Snapshot{
		ID:         "snap-1",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		InputSize:  5,
		HiddenSize: 8,
		OutputSize: 2,
		Tags:       []string{"goodbye", "greeting"},
	}
	c := &corpus.Corpus{Intents: []corpus.Intent{
		{Tag: "greeting", Patterns: []string{"hi", "hello", "hey"}, Responses: []string{"Hello!"}},
	}}
	sum := Summarize(snap, c)
	if len(sum.Tags) != 2 {
		t.Fatalf("tags: %+v", sum.Tags)
	}
	if sum.Tags[0].Patterns != 0 || sum.Tags[1].Patterns != 3 || sum.Tags[1].Responses != 1 {
		t.Errorf("counts: %+v", sum.Tags)
	}
	if got := Summarize(snap, nil); got.Tags[1].Patterns != 0 {
		t.Errorf("nil corpus should give zero counts: %+v", got.Tags)
	}

	var buf bytes.Buffer
	if err := WriteSnapshotSummary(&buf, sum, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"snap-1", "5 -> 8 -> 2", "greeting", "goodbye"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTrainingRuns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTrainingRuns(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No training runs") {
		t.Errorf("empty text: %q", buf.String())
	}
	buf.Reset()
	if err := WriteTrainingRuns(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty json: %q", buf.String())
	}

	runs := []*models.TrainingRun{{
		SnapshotID: "0123456789abcdef", Examples: 26, Vocabulary: 54, Tags: 7,
		Epochs: 1000, Loss: 0.0123, Accuracy: 1, DurationMS: 1500, CreatedAt: time.Now(),
	}}
	buf.Reset()
	if err := WriteTrainingRuns(&buf, runs, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"01234567...", "0.0123", "100.0%", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteStatus(t *testing.T) {
	st := &models.StatusResponse{Engine: "genai", Exchanges: 3, DiskUsageBytes: 2048}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "genai") || !strings.Contains(out, "2.0 KiB") || strings.Contains(out, "Backend") {
		t.Errorf("status text:\n%s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
		3 << 30:         "3.0 GiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestREPL(t *testing.T) {
	var asked []string
	r := &REPL{
		In:  strings.NewReader("hello\n\n  boom \nEXIT\nnever\n"),
		Out: &bytes.Buffer{},
		Ask: func(_ context.Context, msg string) (*models.ChatResponse, error) {
			asked = append(asked, msg)
			if msg == "boom" {
				return nil, errors.New("server down")
			}
			return &models.ChatResponse{Response: "Hi!", Tag: "greeting", Confidence: 0.9}, nil
		},
		Verbose: true,
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Join(asked, ",") != "hello,boom" {
		t.Errorf("asked %v", asked)
	}
	out := r.Out.(*bytes.Buffer).String()
	for _, want := range []string{"bot> Hi!", "[greeting 0.900]", "Error: server down"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestREPL_EOF(t *testing.T) {
	r := &REPL{
		In:  strings.NewReader("hi"),
		Out: &bytes.Buffer{},
		Ask: func(context.Context, string) (*models.ChatResponse, error) {
			return &models.ChatResponse{Response: "ok"}, nil
		},
	}
	if err := r.Run(context.Background()); err != nil {
		t.Errorf("EOF should end cleanly: %v", err)
	}
}

func TestClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/chat":
			var req models.ChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(models.ChatResponse{Response: "echo: " + req.Message, Matched: true})
		case "/api/v1/status":
			_ = json.NewEncoder(w).Encode(models.StatusResponse{Engine: "classifier", Exchanges: 4})
		case "/api/v1/reload":
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid snapshot"})
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL + "/")
	ctx := context.Background()
	reply, err := c.Chat(ctx, "hi")
	if err != nil || reply.Response != "echo: hi" {
		t.Fatalf("Chat = %+v, %v", reply, err)
	}
	st, err := c.Status(ctx)
	if err != nil || st.Exchanges != 4 {
		t.Fatalf("Status = %+v, %v", st, err)
	}
	if _, err := c.Reload(ctx); err == nil || !strings.Contains(err.Error(), "500: invalid snapshot") {
		t.Errorf("Reload error = %v", err)
	}
}
