// Package storage provides artifact stores for trained models.
package storage

import (
	"io"
	"os"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Store reads and writes named artifacts. Writes become visible when the
// returned writer is closed without error.
type Store interface {
	Create(name string) (io.WriteCloser, error)
	Open(name string) (io.ReadCloser, error)
}

// ErrNotExist is returned by Open when no artifact has the given name.
var ErrNotExist = os.ErrNotExist

// IsNotExist reports whether err means the artifact is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}
