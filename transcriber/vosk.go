package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/encoder"
)

// wavHeaderSize is the canonical RIFF header length of artifacts
// produced by the encoder package.
const wavHeaderSize = 44

// voskChunkBytes is how much PCM is fed to the recognizer per call,
// 4000 16-bit samples.
const voskChunkBytes = 8000

// Vosk is the offline backend. The model is loaded once via
// EnsureReady; a missing or invalid model directory is reported as
// ErrModelNotLoaded and can be fixed by fetching the model and
// retrying, without rebuilding the engine.
type Vosk struct {
	cfg Config

	mu    sync.Mutex
	model *vosk.VoskModel
}

func NewVosk(cfg Config) *Vosk {
	vosk.SetLogLevel(-1)
	return &Vosk{cfg: cfg}
}

func (v *Vosk) Name() string { return "vosk" }

func (v *Vosk) EnsureReady(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ensureModel()
}

func (v *Vosk) ensureModel() error {
	if v.model != nil {
		return nil
	}
	path, err := findModelDir(v.cfg.ModelPath)
	if err != nil {
		return err
	}
	model, err := vosk.NewModel(path)
	if err != nil {
		return fmt.Errorf("%w: loading %s: %v", ErrModelNotLoaded, path, err)
	}
	v.model = model
	return nil
}

// Close frees the loaded model.
func (v *Vosk) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

func (v *Vosk) Transcribe(_ context.Context, artifact *encoder.Artifact) (*Result, error) {
	if err := probeArtifact(artifact, v.cfg.SampleRate, v.cfg.Channels); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ensureModel(); err != nil {
		return nil, err
	}

	rec, err := vosk.NewRecognizer(v.model, float64(v.cfg.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("%w: recognizer: %v", ErrTranscription, err)
	}
	defer rec.Free()
	rec.SetWords(1)

	raw, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading artifact: %v", ErrTranscription, err)
	}
	if len(raw) <= wavHeaderSize {
		return nil, fmt.Errorf("%w: artifact has no payload", ErrTranscription)
	}
	pcm := raw[wavHeaderSize:]

	var parts []string
	var confSum float64
	var confN int
	for pos := 0; pos < len(pcm); pos += voskChunkBytes {
		end := min(pos+voskChunkBytes, len(pcm))
		if rec.AcceptWaveform(pcm[pos:end]) != 0 {
			text, conf, n := parseVoskResult(rec.Result())
			if text != "" {
				parts = append(parts, text)
			}
			confSum += conf
			confN += n
		}
	}
	text, conf, n := parseVoskResult(rec.FinalResult())
	if text != "" {
		parts = append(parts, text)
	}
	confSum += conf
	confN += n

	result := &Result{
		Text:     strings.TrimSpace(strings.Join(parts, " ")),
		Backend:  v.Name(),
		Duration: artifact.Duration,
		Language: v.cfg.Language,
	}
	if confN > 0 {
		result.Confidence = confSum / float64(confN)
	}
	return result, nil
}

// parseVoskResult extracts the text and per-word confidence sum from a
// recognizer result JSON document.
func parseVoskResult(doc string) (text string, confSum float64, confN int) {
	var r struct {
		Text   string `json:"text"`
		Result []struct {
			Conf float64 `json:"conf"`
			Word string  `json:"word"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return "", 0, 0
	}
	for _, w := range r.Result {
		confSum += w.Conf
		confN++
	}
	return strings.TrimSpace(r.Text), confSum, confN
}

// findModelDir resolves a usable Vosk model directory. The configured
// path may point straight at a model or at a directory containing
// vosk-model-* subdirectories.
func findModelDir(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no model path configured", ErrModelNotLoaded)
	}
	if isValidModelDir(path) {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelNotLoaded, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "vosk-model") {
			continue
		}
		candidate := filepath.Join(path, e.Name())
		if isValidModelDir(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no valid model under %s", ErrModelNotLoaded, path)
}

func isValidModelDir(path string) bool {
	for _, f := range []string{"am/final.mdl", "conf/mfcc.conf"} {
		if _, err := os.Stat(filepath.Join(path, f)); err != nil {
			return false
		}
	}
	info, err := os.Stat(filepath.Join(path, "graph"))
	return err == nil && info.IsDir()
}
