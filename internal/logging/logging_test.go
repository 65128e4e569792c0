package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("body", "sun")).Debug(context.Background(), "sighting solved",
		Float("lat", 51.5), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["msg"] != "sighting solved" || rec["body"] != "sun" || rec["lat"] != 51.5 || rec["error"] != "boom" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filtering broken: %q", out)
	}
}

func TestSightingID(t *testing.T) {
	ctx, id := EnsureSightingID(context.Background())
	if id == "" {
		t.Fatal("empty sighting id")
	}
	ctx2, id2 := EnsureSightingID(ctx)
	if id2 != id || SightingIDFromContext(ctx2) != id {
		t.Fatalf("sighting id not reused: %q vs %q", id2, id)
	}

	if _, l := WithSightingLogger(nil, nil); l == nil {
		t.Fatal("nil logger")
	}
}
