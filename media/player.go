package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// Player is the playback side of local transcription: the audio is played out
// loud so a microphone-listening recognizer can hear it. A Player is single
// use: Load, then Play, then wait on Ended.
type Player interface {
	// Load validates the source decodes before any playback starts.
	Load(ctx context.Context, path string) error
	// Play starts playback and returns immediately.
	Play(ctx context.Context) error
	// Ended delivers exactly one value: nil when playback ran to the end,
	// an error when it broke off.
	Ended() <-chan error
	// Close stops playback and releases the process.
	Close() error
}

// FFPlay plays audio through the system output at reduced volume via ffplay.
type FFPlay struct {
	Binary string
	Volume int

	path  string
	cmd   *exec.Cmd
	ended chan error
}

// NewFFPlay returns a player at the given volume (1-100). Out of range values
// fall back to 25, quiet enough not to drown the recognizer.
func NewFFPlay(volume int) *FFPlay {
	if volume < 1 || volume > 100 {
		volume = 25
	}
	return &FFPlay{Binary: "ffplay", Volume: volume, ended: make(chan error, 1)}
}

func (p *FFPlay) Load(ctx context.Context, path string) error {
	if _, err := NewFFProbe().Probe(ctx, path); err != nil {
		return err
	}
	p.path = path
	return nil
}

func (p *FFPlay) Play(ctx context.Context) error {
	if p.path == "" {
		return errors.Join(ErrMediaLoad, errors.New("no source loaded"))
	}
	bin := p.Binary
	if bin == "" {
		bin = "ffplay"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		"-volume", strconv.Itoa(p.Volume),
		p.path,
	)
	if err := cmd.Start(); err != nil {
		return errors.Join(ErrMediaLoad, fmt.Errorf("start playback: %w", err))
	}
	p.cmd = cmd
	go func() {
		if err := cmd.Wait(); err != nil {
			p.ended <- fmt.Errorf("playback: %w", err)
			return
		}
		p.ended <- nil
	}()
	return nil
}

func (p *FFPlay) Ended() <-chan error {
	return p.ended
}

func (p *FFPlay) Close() error {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}
