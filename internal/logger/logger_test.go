package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{"debug level keeps debug", "debug", true},
		{"info level drops debug", "info", false},
		{"unknown level falls back to info", "verbose", false},
		{"empty level falls back to info", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tc.level)

			log.Debug().Msg("debug line")
			if got := buf.Len() > 0; got != tc.wantDebug {
				t.Fatalf("debug written = %v, want %v", got, tc.wantDebug)
			}
		})
	}
}

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.Info().Str("component", "test").Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	for _, key := range []string{"time", "caller", "message", "component"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("expected %q field in log entry %v", key, entry)
		}
	}
}
