package transcribe

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrTranscriptionFailed wraps the last underlying cause once every eligible
// transcription path has been exhausted.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber turns one audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// LocalTranscriber is a Transcriber whose capability can come and go with the
// runtime environment.
type LocalTranscriber interface {
	Transcriber
	Supported() bool
}

// Engine picks between the local and remote transcription paths.
type Engine interface {
	// Transcribe runs the selection policy: remote only when preferred or
	// when local is unsupported, otherwise local first with at most one
	// remote fallback.
	Transcribe(ctx context.Context, audioPath string, preferRemote bool) (string, error)
	// LocalSupported reports whether the local path is currently available.
	LocalSupported() bool
}

type engine struct {
	local  LocalTranscriber
	remote Transcriber
}

func NewEngine(local LocalTranscriber, remote Transcriber) Engine {
	return &engine{local: local, remote: remote}
}

func (e *engine) LocalSupported() bool {
	return e.local.Supported()
}

func (e *engine) Transcribe(ctx context.Context, audioPath string, preferRemote bool) (string, error) {
	log := zerolog.Ctx(ctx)

	if preferRemote || !e.local.Supported() {
		text, err := e.remote.Transcribe(ctx, audioPath)
		if err != nil {
			return "", errors.Join(ErrTranscriptionFailed, err)
		}
		return text, nil
	}

	text, err := e.local.Transcribe(ctx, audioPath)
	if err == nil {
		return text, nil
	}
	if !e.local.Supported() {
		// The capability went away mid run; nothing left to try.
		return "", errors.Join(ErrTranscriptionFailed, err)
	}

	log.Warn().Err(err).Str("audio_path", audioPath).Msg("local transcription failed, falling back to remote")
	text, rerr := e.remote.Transcribe(ctx, audioPath)
	if rerr != nil {
		return "", errors.Join(ErrTranscriptionFailed, rerr)
	}
	return text, nil
}
