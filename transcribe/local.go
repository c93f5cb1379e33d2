package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vivekg189/smart-classroom/config"
	"github.com/vivekg189/smart-classroom/media"
)

// LocalEngine drives a playback and recognition pairing: the audio file is
// played at reduced volume while the recognizer listens on the audio input,
// and the final fragments are reconciled into one transcript.
type LocalEngine struct {
	recognizer Recognizer
	newPlayer  func() media.Player
	language   string
	settle     time.Duration
	timeout    time.Duration
}

// NewLocalEngine wires a recognizer to a player factory. Players are single
// use, so each run builds a fresh one.
func NewLocalEngine(recognizer Recognizer, newPlayer func() media.Player, cfg config.Transcription) *LocalEngine {
	return &LocalEngine{
		recognizer: recognizer,
		newPlayer:  newPlayer,
		language:   cfg.Language,
		settle:     cfg.SettleDelay,
		timeout:    cfg.LocalTimeout,
	}
}

// Supported reports whether the local recognition capability is present.
func (e *LocalEngine) Supported() bool {
	return e.recognizer.Available()
}

// Transcribe plays the audio file and collects recognized fragments until
// playback ends plus a settle delay for trailing results. The source must
// load before recognition starts, so a broken file never opens a session.
func (e *LocalEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	player := e.newPlayer()
	defer player.Close()

	if err := player.Load(ctx, audioPath); err != nil {
		return "", err
	}

	session, err := e.recognizer.Start(ctx, e.language)
	if err != nil {
		return "", tagRecognition(err)
	}
	defer session.Stop()

	if err := player.Play(ctx); err != nil {
		return "", err
	}

	var fragments []string
	results := session.Results()
	ended := player.Ended()
	var settle <-chan time.Time

	for {
		select {
		case text, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			fragments = append(fragments, text)
		case err := <-session.Err():
			return "", tagRecognition(err)
		case err := <-ended:
			if err != nil {
				return "", errors.Join(media.ErrMediaLoad, err)
			}
			// Recognition lags playback; wait for trailing fragments.
			settle = time.After(e.settle)
			ended = nil
		case <-settle:
			fragments = drainResults(results, fragments)
			return strings.TrimSpace(strings.Join(fragments, " ")), nil
		case <-ctx.Done():
			return "", tagRecognition(fmt.Errorf("recognition aborted: %w", ctx.Err()))
		}
	}
}

// drainResults empties fragments already queued when the settle timer fires.
func drainResults(results <-chan string, fragments []string) []string {
	for {
		select {
		case text, ok := <-results:
			if !ok {
				return fragments
			}
			fragments = append(fragments, text)
		default:
			return fragments
		}
	}
}

func tagRecognition(err error) error {
	if errors.Is(err, ErrRecognition) {
		return err
	}
	return errors.Join(ErrRecognition, err)
}
