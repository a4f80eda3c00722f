// Package filesink stores export artifacts on the local filesystem and hands
// them off by moving them into an outbox directory.
package filesink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"payment_batch_service/internal/domain/export"
)

const filePerm = 0o640

// LocalSink writes staged files under StagingDir and moves them to OutboxDir.
type LocalSink struct {
	stagingDir string
	outboxDir  string
}

// NewLocalSink returns a sink for the given directories. Both are created on
// first use.
func NewLocalSink(stagingDir, outboxDir string) (*LocalSink, error) {
	staging, err := filepath.Abs(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir: %w", err)
	}
	outbox, err := filepath.Abs(outboxDir)
	if err != nil {
		return nil, fmt.Errorf("resolve outbox dir: %w", err)
	}
	if staging == outbox {
		return nil, fmt.Errorf("staging and outbox dirs must differ: %s", staging)
	}
	return &LocalSink{stagingDir: staging, outboxDir: outbox}, nil
}

func (s *LocalSink) StagingDir() string { return s.stagingDir }
func (s *LocalSink) OutboxDir() string  { return s.outboxDir }

// Create opens name in the staging directory. The name must be free in both
// the staging and outbox directories.
func (s *LocalSink) Create(name string) (export.StagedFile, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid export file name %q", name)
	}
	if err := os.MkdirAll(s.stagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(s.outboxDir, name)); err == nil {
		return nil, fmt.Errorf("%w: %s", export.ErrFileExists, filepath.Join(s.outboxDir, name))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("check outbox for %s: %w", name, err)
	}

	path := filepath.Join(s.stagingDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", export.ErrFileExists, path)
		}
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	return &stagedFile{f: f, w: bufio.NewWriter(f)}, nil
}

// Handoff moves a staged file into the outbox without overwriting anything
// already there.
func (s *LocalSink) Handoff(stagedPath string) (string, error) {
	src, err := s.stagedPath(stagedPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.outboxDir, 0o750); err != nil {
		return "", fmt.Errorf("create outbox dir: %w", err)
	}
	dst := filepath.Join(s.outboxDir, filepath.Base(src))

	// os.Link refuses to replace dst, unlike os.Rename.
	err = os.Link(src, dst)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrExist):
		// A previous handoff linked the file but failed to remove the source.
		if !sameFile(src, dst) {
			return "", fmt.Errorf("%w: %s", export.ErrFileExists, dst)
		}
	case errors.Is(err, syscall.EXDEV):
		if err := copyExclusive(src, dst); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("move %s to outbox: %w", src, err)
	}

	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("remove staged file after handoff: %w", err)
	}
	return dst, nil
}

// Discard removes a staged file. Missing files are ignored.
func (s *LocalSink) Discard(stagedPath string) error {
	src, err := s.stagedPath(stagedPath)
	if err != nil {
		return err
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard staged file: %w", err)
	}
	return nil
}

func (s *LocalSink) stagedPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve staged path: %w", err)
	}
	if filepath.Dir(abs) != s.stagingDir {
		return "", fmt.Errorf("%s is not in staging dir %s", abs, s.stagingDir)
	}
	return abs, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", export.ErrFileExists, dst)
		}
		return fmt.Errorf("create outbox file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy to outbox: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("sync outbox file: %w", err)
	}
	return out.Close()
}

type stagedFile struct {
	f      *os.File
	w      *bufio.Writer
	closed bool
}

func (s *stagedFile) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *stagedFile) Path() string { return s.f.Name() }

// Close is safe to call more than once.
func (s *stagedFile) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush staged file: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("sync staged file: %w", err)
	}
	return s.f.Close()
}
