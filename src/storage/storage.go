package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"circle-search/src/screenshot"

	"github.com/disintegration/imaging"
)

const (
	// DirName is the folder created next to the executable.
	DirName = "screenshots"

	filePrefix      = "circle_search_"
	timestampLayout = "20060102_150405"
)

// File is a capture written to disk.
type File struct {
	Path      string
	Timestamp string
}

// Store writes captures into a single directory that is created on first use.
type Store struct {
	dir string
	now func() time.Time

	once    sync.Once
	initErr error
}

// New returns a Store rooted at dir. An empty dir means DefaultDir().
func New(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// DefaultDir is <executable dir>/screenshots, falling back to the working directory.
func DefaultDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return DirName
	}
	return filepath.Join(filepath.Dir(execPath), DirName)
}

// Dir returns the resolved target directory.
func (s *Store) Dir() string {
	if s.dir == "" {
		return DefaultDir()
	}
	return s.dir
}

// FileName returns the capture name for t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + ".png"
}

func (s *Store) ensureDir() error {
	s.once.Do(func() {
		dir := s.Dir()
		if _, err := os.Stat(dir); err == nil {
			return
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.initErr = fmt.Errorf("create screenshots directory %s: %w", dir, err)
			return
		}
		log.Printf("Created screenshots directory: %s", dir)
	})
	return s.initErr
}

// freePath returns the name for t, suffixed _1, _2, ... when a capture from
// the same second is already on disk.
func (s *Store) freePath(t time.Time) string {
	base := filePrefix + t.Format(timestampLayout)
	path := filepath.Join(s.Dir(), base+".png")
	for n := 1; ; n++ {
		if _, err := os.Stat(path); err != nil {
			return path
		}
		path = filepath.Join(s.Dir(), fmt.Sprintf("%s_%d.png", base, n))
	}
}

// Save encodes img as PNG under a fresh timestamped name.
func (s *Store) Save(img *screenshot.Image) (File, error) {
	if img == nil || img.Pixels == nil {
		return File{}, fmt.Errorf("no image to persist")
	}
	if err := s.ensureDir(); err != nil {
		return File{}, err
	}

	now := s.now()
	path := s.freePath(now)
	if err := imaging.Save(img.Pixels, path); err != nil {
		return File{}, fmt.Errorf("save screenshot %s: %w", path, err)
	}
	return File{Path: path, Timestamp: now.Format(timestampLayout)}, nil
}
