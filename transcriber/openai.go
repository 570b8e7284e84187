package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/log"
)

const (
	openaiURL     = "https://api.openai.com/v1/audio/transcriptions"
	openaiModel   = "gpt-4o-mini-transcribe"
	openaiTimeout = 60 * time.Second

	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// OpenAI is the cloud backend: the artifact bytes are uploaded as a
// multipart form over an authenticated request. Transport failures and
// server errors are retried with exponential backoff before
// surfacing; client errors such as a bad key are not.
type OpenAI struct {
	cfg    Config
	apiURL string
	client *tracedClient
}

func NewOpenAI(cfg Config) *OpenAI {
	return &OpenAI{
		cfg:    cfg,
		apiURL: openaiURL,
		client: newTracedClient(openaiTimeout),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) EnsureReady(_ context.Context) error {
	if o.cfg.APIKey == "" {
		return fmt.Errorf("%w: no API key configured", ErrTranscription)
	}
	return nil
}

func (o *OpenAI) Transcribe(ctx context.Context, artifact *encoder.Artifact) (*Result, error) {
	if err := o.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if err := probeArtifact(artifact, o.cfg.SampleRate, o.cfg.Channels); err != nil {
		return nil, err
	}

	audioData, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading artifact: %v", ErrTranscription, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTranscription, ctx.Err())
			}
		}

		result, retryable, err := o.upload(ctx, audioData, filepath.Base(artifact.Path))
		if err == nil {
			result.Duration = artifact.Duration
			return result, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrTranscription, lastErr)
}

func (o *OpenAI) upload(ctx context.Context, audioData []byte, filename string) (*Result, bool, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, false, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, false, err
	}

	writer.WriteField("model", openaiModel)
	if o.cfg.Language != "" {
		writer.WriteField("language", o.cfg.Language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, &body)
	if err != nil {
		return nil, false, err
	}

	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	if m := resp.Metrics; m != nil {
		log.Infof("openai upload: dns=%dms tcp=%dms tls=%dms ttfb=%dms total=%dms reused=%v",
			m.DNS.Milliseconds(), m.TCP.Milliseconds(), m.TLS.Milliseconds(),
			m.TTFB.Milliseconds(), m.Total.Milliseconds(), m.ConnReused)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var oResp struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(resp.Body, &oResp); err != nil {
		return nil, false, fmt.Errorf("openai response parse error: %w", err)
	}

	lang := oResp.Language
	if lang == "" {
		lang = o.cfg.Language
	}
	return &Result{
		Text:    oResp.Text,
		Backend: o.Name(),
		// The API does not report confidence for this model.
		Confidence: 0,
		Language:   lang,
	}, false, nil
}
