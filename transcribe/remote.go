package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vivekg189/smart-classroom/config"
)

// stubLatency approximates a round trip so the pipeline behaves the same with
// and without a configured API key.
const stubLatency = 200 * time.Millisecond

// RemoteEngine submits audio files to the OpenAI transcription API. Without
// an API key it degrades to a deterministic stub so development installs can
// run the full pipeline; the stub is not a transcription.
type RemoteEngine struct {
	client   *openai.Client
	model    string
	language string
	timeout  time.Duration
	stub     bool
}

func NewRemoteEngine(cfg config.Transcription) *RemoteEngine {
	e := &RemoteEngine{
		model:    cfg.OpenAIModel,
		language: cfg.Language,
		timeout:  cfg.RemoteTimeout,
	}
	if cfg.OpenAIKey == "" {
		e.stub = true
		return e
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	e.client = openai.NewClientWithConfig(clientCfg)
	return e
}

func (e *RemoteEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if e.stub {
		return e.stubTranscribe(ctx, audioPath)
	}

	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
	}
	if e.language != "" {
		req.Language = e.language
	}
	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (e *RemoteEngine) stubTranscribe(ctx context.Context, audioPath string) (string, error) {
	select {
	case <-time.After(stubLatency):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("Transcribed %s", filepath.Base(audioPath)), nil
}
