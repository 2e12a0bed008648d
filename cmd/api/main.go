package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"presenter-clips-go/internal/app"
	"presenter-clips-go/internal/config"
	"presenter-clips-go/internal/logger"
	"presenter-clips-go/internal/processor"
	"presenter-clips-go/internal/segmenter"
	"presenter-clips-go/internal/types"
)

type recordingProcessor interface {
	Analyze(words []types.Word) (processor.Analysis, error)
	Process(ctx context.Context, rec types.Recording) (processor.Result, error)
}

type server struct {
	log  *logger.Logger
	proc recordingProcessor
	// processTimeout is the default for /process when timeout_sec is absent.
	processTimeout time.Duration
}

func main() {
	configFile := flag.String("config", "", "path to config.yml")
	envFile := flag.String("env", "", "path to .env")
	flag.Parse()

	cfg, err := config.Load(config.LoaderOptions{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "presenter-clips-go").Info("starting service")

	s := &server{
		log:            log,
		proc:           app.NewProcessor(cfg, log.Entry),
		processTimeout: cfg.Batch.RecordingTimeout,
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Batch.RecordingTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.log.WithRequest(r).Debug("health check")
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/segments", s.handleSegments)
	mux.HandleFunc("/process", s.handleProcess)
	return mux
}

type segmentsRequest struct {
	Words []types.Word `json:"words"`
}

// segmentsResponse exposes the merged turns that the manifest leaves out.
type segmentsResponse struct {
	Turns []types.Turn `json:"turns"`
	processor.Analysis
}

type errorResponse struct {
	Error string `json:"error"`
	Index *int   `json:"index,omitempty"`
}

// handleSegments runs the selection on a posted word list without touching
// audio.
func (s *server) handleSegments(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "segments")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req segmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reqLog.WithField("error", err.Error()).Warn("bad request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	an, err := s.proc.Analyze(req.Words)
	if err != nil {
		var mie *segmenter.MalformedInputError
		if errors.As(err, &mie) {
			reqLog.WithField("error", err.Error()).Warn("malformed words")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Index: &mie.Index})
			return
		}
		reqLog.WithField("error", err.Error()).Error("analyze failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	reqLog.WithField("words", len(req.Words)).WithField("segments", len(an.Segments)).Info("segments selected")
	writeJSON(w, http.StatusOK, segmentsResponse{Turns: an.Turns, Analysis: an})
}

// handleProcess runs the full pipeline for one recording named by ?name=.
func (s *server) handleProcess(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "process")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	rec := types.Recording{Name: q.Get("name"), AudioURL: q.Get("audio_url")}
	if rec.Name == "" {
		reqLog.Warn("missing name")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing name"})
		return
	}
	timeout := s.processTimeout
	if t := q.Get("timeout_sec"); t != "" {
		sec, err := strconv.Atoi(t)
		if err != nil || sec <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid timeout_sec"})
			return
		}
		timeout = time.Duration(sec) * time.Second
	}
	reqLog = reqLog.WithField("recording", rec.Name).WithField("timeout", timeout.String())
	reqLog.Info("process request received")

	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := s.proc.Process(ctx, rec)
	status := http.StatusOK
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("processor returned error")
		status = http.StatusInternalServerError
		switch {
		case errors.Is(err, processor.ErrNoAudioURL):
			status = http.StatusBadRequest
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
	}
	reqLog.WithField("duration_ms", res.DurationMs).Info("processor finished")
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
