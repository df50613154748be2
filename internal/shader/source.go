package shader

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"deferred-engine/internal/gpu"
)

// Separator divides the vertex half of a unified source from the fragment half.
const Separator = "<split>"

// Source is where a unified shader document comes from. Units poll ModTime
// every frame and only call Read when it moves.
type Source interface {
	Path() string
	ModTime() (time.Time, error)
	Read() (string, error)
}

// FileSource reads a unified shader document from disk.
type FileSource struct {
	path string
}

// NewFileSource returns a Source backed by the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Path() string { return f.path }

func (f *FileSource) ModTime() (time.Time, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat shader %q: %w", f.path, err)
	}
	return info.ModTime(), nil
}

func (f *FileSource) Read() (string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read shader %q: %w", f.path, err)
	}
	return string(b), nil
}

// MemorySource holds a unified document in memory. Set replaces the text and
// modification time, which is how tests and embedded shaders signal a change.
type MemorySource struct {
	mu      sync.Mutex
	path    string
	text    string
	modTime time.Time
	reads   int
}

// NewMemorySource returns a Source holding text, reported as last modified
// at modTime.
func NewMemorySource(path, text string, modTime time.Time) *MemorySource {
	return &MemorySource{path: path, text: text, modTime: modTime}
}

// Set replaces the document.
func (m *MemorySource) Set(text string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.modTime = modTime
}

// Reads returns how many times the document has been read.
func (m *MemorySource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MemorySource) Path() string { return m.path }

func (m *MemorySource) ModTime() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modTime, nil
}

func (m *MemorySource) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.text, nil
}

// Section extracts the half of a unified document that belongs to stage:
// the text before the first Separator is the vertex stage, the text after
// it the fragment stage.
func Section(text string, stage gpu.Stage) (string, error) {
	parts := strings.Split(text, Separator)
	var i int
	switch stage {
	case gpu.VertexStage:
		i = 0
	case gpu.FragmentStage:
		i = 1
	default:
		return "", fmt.Errorf("%w: stage %v", ErrMissingSection, stage)
	}
	if i >= len(parts) {
		return "", fmt.Errorf("%w: no %v section", ErrMissingSection, stage)
	}
	return parts[i], nil
}
