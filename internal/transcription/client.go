package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

type ClientConfig struct {
	BaseURL        string
	APIToken       string
	PollInterval   time.Duration
	MaxPolls       int
	RequestTimeout time.Duration
	// MaxRetryElapsed bounds the retry of a single request; 0 = 12s.
	MaxRetryElapsed time.Duration
}

// Client talks to an AssemblyAI-style v2 transcript API: submit the audio
// URL with speaker labels on, then poll the transcript until it completes.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *logrus.Entry
}

func NewClient(cfg ClientConfig, log *logrus.Entry) *Client {
	if cfg.MaxRetryElapsed == 0 {
		cfg.MaxRetryElapsed = 12 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
		log:  log.WithField("module", "transcription"),
	}
}

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

// Transcribe submits the audio and blocks until the transcript is ready,
// failed, or MaxPolls is exhausted.
func (c *Client) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	log := c.log.WithField("recording", req.Name)
	id, err := c.submit(ctx, req.AudioURL)
	if err != nil {
		return nil, err
	}
	log.WithField("transcript_id", id).Info("transcription submitted")
	return c.poll(ctx, id, log)
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body, _ := json.Marshal(submitRequest{AudioURL: audioURL, SpeakerLabels: true})
	var resp Transcript
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("transcript"), body, &resp); err != nil {
		return "", fmt.Errorf("submit transcript: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("submit transcript: empty id (status=%s error=%s)", resp.Status, resp.Error)
	}
	return resp.ID, nil
}

func (c *Client) poll(ctx context.Context, id string, log *logrus.Entry) (*Transcript, error) {
	endpoint := c.endpoint("transcript/" + id)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for i := 0; i < c.cfg.MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		var tr Transcript
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &tr); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Warn("polling failed")
			continue
		}
		log.WithFields(logrus.Fields{
			"transcript_id": id,
			"status":        tr.Status,
		}).Debug("polling transcription")

		switch tr.Status {
		case statusCompleted:
			return &tr, nil
		case statusQueued, statusProcessing:
			continue
		case statusError:
			return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, tr.Error)
		}
	}
	return nil, fmt.Errorf("%w: %s after %d polls", ErrTimeout, id, c.cfg.MaxPolls)
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}

// doJSON retries transport errors and 5xx responses with exponential
// backoff. 4xx responses fail immediately.
func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.cfg.MaxRetryElapsed
	op := func() error {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rdr)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.cfg.APIToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, string(b))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("client error %d: %s", resp.StatusCode, string(b)))
		}
		if len(b) == 0 {
			return fmt.Errorf("empty body")
		}
		if err := json.Unmarshal(b, target); err != nil {
			return backoff.Permanent(fmt.Errorf("json decode error: %v body=%s", err, string(b)))
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
