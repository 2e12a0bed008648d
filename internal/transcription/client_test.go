package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"presenter-clips-go/internal/logger"
	"presenter-clips-go/internal/types"
)

func newTestClient(url string, maxPolls int) *Client {
	return NewClient(ClientConfig{
		BaseURL:         url,
		APIToken:        "secret",
		PollInterval:    time.Millisecond,
		MaxPolls:        maxPolls,
		RequestTimeout:  time.Second,
		MaxRetryElapsed: 3 * time.Second,
	}, logger.Discard().Entry)
}

func TestClient_Transcribe(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "secret" {
			t.Errorf("expected token header, got %q", r.Header.Get("Authorization"))
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var body submitRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode submit: %v", err)
			}
			if body.AudioURL != "https://audio/acme.mp3" || !body.SpeakerLabels {
				t.Errorf("unexpected submit body %+v", body)
			}
			w.Write([]byte(`{"id":"t1","status":"queued"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/t1":
			if atomic.AddInt32(&polls, 1) < 3 {
				w.Write([]byte(`{"id":"t1","status":"processing"}`))
				return
			}
			w.Write([]byte(`{"id":"t1","status":"completed","words":[
				{"text":"Hello","start":0,"end":400,"confidence":0.9,"speaker":"A"},
				{"text":"there","start":400,"end":800,"confidence":0.8,"speaker":"B"}]}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/v2/", 10)
	tr, err := c.Transcribe(context.Background(), Request{Name: "acme", AudioURL: "https://audio/acme.mp3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(tr.Words))
	}
	if tr.Words[1].Speaker != types.NewSpeakerID("B") || tr.Words[1].End != 800 {
		t.Errorf("unexpected word %+v", tr.Words[1])
	}
	if got := atomic.LoadInt32(&polls); got != 3 {
		t.Errorf("expected 3 polls, got %d", got)
	}
}

func TestClient_TranscriptionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"t2","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"t2","status":"error","error":"audio not reachable"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).Transcribe(context.Background(), Request{Name: "x", AudioURL: "u"})
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestClient_PollTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"t3","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"t3","status":"processing"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Transcribe(context.Background(), Request{Name: "x", AudioURL: "u"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Transcribe(context.Background(), Request{Name: "x", AudioURL: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestClient_ServerErrorRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"id":"t4","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"t4","status":"completed","words":[]}`))
	}))
	defer srv.Close()

	tr, err := newTestClient(srv.URL, 2).Transcribe(context.Background(), Request{Name: "x", AudioURL: "u"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.ID != "t4" {
		t.Errorf("expected transcript t4, got %q", tr.ID)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"id":"t5","status":"queued"}`))
			return
		}
		w.Write([]byte(`{"id":"t5","status":"processing"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1000)
	c.cfg.PollInterval = 20 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Transcribe(ctx, Request{Name: "x", AudioURL: "u"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "bare.json"), []byte(`[{"speaker":"A","start":0,"end":10},{"speaker":null,"start":10,"end":20}]`), 0o644)
	os.WriteFile(filepath.Join(dir, "full.json"), []byte(`{"id":"x","status":"completed","words":[{"speaker":1,"start":0,"end":10}]}`), 0o644)
	os.WriteFile(filepath.Join(dir, "failed.json"), []byte(`{"id":"y","status":"error","error":"bad audio"}`), 0o644)

	p := FileProvider{Dir: dir}
	tr, err := p.Transcribe(context.Background(), Request{Name: "bare"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Words) != 2 || tr.Words[1].Speaker.String() != "" {
		t.Errorf("unexpected words %+v", tr.Words)
	}

	tr, err = p.Transcribe(context.Background(), Request{Name: "full"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Words[0].Speaker.String() != "1" {
		t.Errorf("expected numeric speaker token 1, got %q", tr.Words[0].Speaker)
	}

	if _, err := p.Transcribe(context.Background(), Request{Name: "failed"}); !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("expected ErrTranscriptionFailed, got %v", err)
	}
	if _, err := p.Transcribe(context.Background(), Request{Name: "missing"}); err == nil {
		t.Error("expected error for missing transcript")
	}
}
