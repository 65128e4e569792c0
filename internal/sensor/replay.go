package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/thurmanmarka/skyfix/internal/orientation"
)

// DefaultHz is the replay rate used when none is given, roughly what a
// phone delivers for deviceorientation events.
const DefaultHz = 60

// maxLine bounds a single recorded reading.
const maxLine = 64 * 1024

// ReadRecording decodes a recorded session: one JSON reading per line.
// Blank lines and lines starting with '#' are skipped.
func ReadRecording(r io.Reader) ([]orientation.Reading, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	var out []orientation.Reading
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rd orientation.Reading
		if err := json.Unmarshal([]byte(text), &rd); err != nil {
			return nil, fmt.Errorf("recording line %d: %w", line, err)
		}
		out = append(out, rd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return out, nil
}

// Replay pushes readings onto out at hz readings per second, standing in
// for a live sensor. It closes out when done. hz <= 0 uses DefaultHz.
func Replay(ctx context.Context, readings []orientation.Reading, hz float64, out chan<- orientation.Reading) error {
	defer close(out)
	if hz <= 0 {
		hz = DefaultHz
	}
	lim := rate.NewLimiter(rate.Limit(hz), 1)

	for _, r := range readings {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		select {
		case out <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
