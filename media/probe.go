package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrMediaLoad marks failures to load or decode a media source. The upload
// pipeline treats probe failures as non-fatal and stores the file without a
// duration.
var ErrMediaLoad = errors.New("media load failed")

// DurationProber reports the playback duration of a media file in whole
// seconds.
type DurationProber interface {
	Probe(ctx context.Context, path string) (int, error)
}

// FFProbe shells out to ffprobe and reads the container duration.
type FFProbe struct {
	Binary string
}

func NewFFProbe() *FFProbe {
	return &FFProbe{Binary: "ffprobe"}
}

func (p *FFProbe) Probe(ctx context.Context, path string) (int, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, errors.Join(ErrMediaLoad, fmt.Errorf("ffprobe %s: %w", path, err))
	}
	return ParseDuration(string(out))
}

// ParseDuration converts ffprobe duration output into floored whole seconds.
func ParseDuration(out string) (int, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, errors.Join(ErrMediaLoad, errors.New("no duration reported"))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Join(ErrMediaLoad, fmt.Errorf("parse duration %q: %w", s, err))
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Join(ErrMediaLoad, fmt.Errorf("invalid duration %q", s))
	}
	return int(math.Floor(f)), nil
}
