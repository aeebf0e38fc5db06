package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
	"github.com/YuminosukeSato/mlkit/pkg/log"
)

// POSIX stores artifacts as files under a directory.
type POSIX struct {
	Dir string
}

// NewPOSIX returns a store rooted at dir. The directory is created on the
// first write.
func NewPOSIX(dir string) *POSIX {
	return &POSIX{Dir: dir}
}

func (p *POSIX) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.NewValueError("POSIX", "artifact name must be a relative path inside the store: "+name)
	}
	return filepath.Join(p.Dir, clean), nil
}

// Open opens an artifact for reading.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	full, err := p.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// Create writes to a temporary file next to the artifact and renames it into
// place on Close, so readers never see a partial artifact.
func (p *POSIX) Create(name string) (io.WriteCloser, error) {
	full, err := p.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", name)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &atomicFile{File: tmp, target: full}, nil
}

type atomicFile struct {
	*os.File
	target string
}

func (f *atomicFile) Close() error {
	if err := f.File.Close(); err != nil {
		_ = os.Remove(f.Name())
		return errors.WithStack(err)
	}
	if err := os.Rename(f.Name(), f.target); err != nil {
		_ = os.Remove(f.Name())
		return errors.WithStack(err)
	}
	log.GetLoggerWithName("storage").Debug("artifact written", log.ArtifactKey, f.target)
	return nil
}
