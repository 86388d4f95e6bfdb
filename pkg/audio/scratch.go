package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// scratchPrefix marks files owned by the scratch store so that a startup
// purge never touches unrelated files in a shared temp directory.
const scratchPrefix = "verblizr-seg-"

// Scratch manages the short-lived WAV artifacts the pipeline builds for
// provider uploads. Every artifact is removed on pipeline completion; Purge
// clears leftovers from a previous process run at startup.
//
// Scratch is safe for concurrent use: each call operates on its own file and
// the directory itself is created once in NewScratch.
type Scratch struct {
	dir string
}

// NewScratch creates (if needed) and returns a scratch store rooted at dir.
// An empty dir falls back to the system temp directory.
func NewScratch(dir string) (*Scratch, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audio: create scratch dir %q: %w", dir, err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the directory artifacts are written to.
func (s *Scratch) Dir() string { return s.dir }

// WriteWAV encodes pcm as a WAV container and writes it to a fresh scratch
// file. The caller owns the returned path and must pass it to Remove when the
// pipeline run finishes, on every exit path.
func (s *Scratch) WriteWAV(pcm []byte, sampleRate int) (string, error) {
	f, err := os.CreateTemp(s.dir, scratchPrefix+"*.wav")
	if err != nil {
		return "", fmt.Errorf("audio: create scratch file: %w", err)
	}
	wav := EncodeWAV(pcm, sampleRate)
	if _, err := f.Write(wav); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("audio: write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("audio: close scratch file: %w", err)
	}
	return f.Name(), nil
}

// Remove deletes a scratch artifact. Missing files are not an error: a
// concurrent purge or a double cleanup must stay silent.
func (s *Scratch) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("scratch artifact remove failed", "path", path, "err", err)
	}
}

// Purge deletes every scratch artifact left behind by a previous process run.
// It returns the number of files removed. Purge never fails the caller: a
// half-readable directory only logs.
func (s *Scratch) Purge() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("scratch purge: read dir failed", "dir", s.dir, "err", err)
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("scratch purge: remove failed", "path", path, "err", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("purged stale audio artifacts", "dir", s.dir, "count", removed)
	}
	return removed
}
