package transcribe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ErrRecognition marks errors reported by the speech recognizer itself, as
// opposed to playback problems.
var ErrRecognition = errors.New("speech recognition failed")

// Recognizer is a continuous speech-to-text capability that may or may not be
// present in the current runtime.
type Recognizer interface {
	// Available reports whether the capability can be used right now. It has
	// no side effects and may change between calls.
	Available() bool
	// Start opens a recognition session emitting final results in the given
	// language.
	Start(ctx context.Context, language string) (Session, error)
}

// Session is one live recognition run.
type Session interface {
	// Results delivers final transcript fragments as they are recognized.
	Results() <-chan string
	// Err delivers at most one recognizer failure.
	Err() <-chan error
	// Stop ends recognition and releases the session.
	Stop() error
}

// StreamRecognizer runs a local streaming speech binary (whisper.cpp style)
// that listens on the default audio input and prints one final fragment per
// line on stdout.
type StreamRecognizer struct {
	Command string
	Args    []string
}

func NewStreamRecognizer(command string) *StreamRecognizer {
	return &StreamRecognizer{Command: command}
}

func (r *StreamRecognizer) Available() bool {
	if r.Command == "" {
		return false
	}
	_, err := exec.LookPath(r.Command)
	return err == nil
}

func (r *StreamRecognizer) Start(ctx context.Context, language string) (Session, error) {
	args := append([]string{"-l", language}, r.Args...)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Join(ErrRecognition, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Join(ErrRecognition, fmt.Errorf("start %s: %w", r.Command, err))
	}

	s := &streamSession{
		cmd:     cmd,
		results: make(chan string, 16),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go s.scan(stdout)
	return s, nil
}

type streamSession struct {
	cmd     *exec.Cmd
	results chan string
	errs    chan error
	done    chan struct{}
	stop    sync.Once
}

func (s *streamSession) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case s.results <- line:
		case <-s.done:
			_ = s.cmd.Wait()
			return
		}
	}
	err := s.cmd.Wait()
	select {
	case <-s.done:
		// Stopped on purpose, the exit status is noise.
	default:
		if err != nil {
			s.errs <- errors.Join(ErrRecognition, fmt.Errorf("%s exited: %w", s.cmd.Path, err))
		}
	}
	close(s.results)
}

func (s *streamSession) Results() <-chan string {
	return s.results
}

func (s *streamSession) Err() <-chan error {
	return s.errs
}

func (s *streamSession) Stop() error {
	var err error
	s.stop.Do(func() {
		close(s.done)
		if s.cmd.Process != nil {
			err = s.cmd.Process.Kill()
		}
	})
	return err
}
