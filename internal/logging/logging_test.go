package logging

import (
	"bytes"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreDefault puts back the global loggers Setup replaces.
func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	prevFlags := log.Flags()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetFlags(prevFlags)
		log.SetOutput(os.Stderr)
	})
}

func TestSetup_ConsoleLevels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
	}{
		{"default shows info", Options{}, false, true},
		{"verbose shows debug", Options{Verbose: true}, true, true},
		{"quiet hides info", Options{Quiet: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreDefault(t)
			var buf bytes.Buffer
			tt.opts.Console = &buf
			tt.opts.NoColor = true

			closeLog, err := Setup(tt.opts)
			require.NoError(t, err)
			defer func() { _ = closeLog() }()

			slog.Debug("debug line")
			slog.Info("info line")
			slog.Error("error line")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info line")))
			assert.Contains(t, buf.String(), "error line")
		})
	}
}

// TestSetup_FileReceivesDebug checks that the file handler logs debug
// records even when the console does not.
func TestSetup_FileReceivesDebug(t *testing.T) {
	restoreDefault(t)
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "git-diff-extract.log")

	closeLog, err := Setup(Options{Console: &console, NoColor: true, FilePath: logPath})
	require.NoError(t, err)

	slog.With("component", "test").Debug("file only", "path", "a.txt")
	log.Print("from std log")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file only")
	assert.Contains(t, string(data), "component=test")
	assert.Contains(t, string(data), "from std log")
	assert.NotContains(t, console.String(), "file only")
	assert.Contains(t, console.String(), "from std log")
}
