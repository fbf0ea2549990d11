package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const blobExt = ".cbor"

// DirStore keeps one file per blob in a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir when needed.
func NewDirStore(dir string) (*DirStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create cache directory %s", dir)
	}

	return &DirStore{dir: dir}, nil
}

// Path returns the file backing id.
func (s *DirStore) Path(id string) string {
	return filepath.Join(s.dir, id+blobExt)
}

func (s *DirStore) Load(ctx context.Context, id string) (*Blob, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to read %s", s.Path(id))
	}

	blob, err := Unmarshal(data)
	if err != nil {
		return nil, true, errors.Wrapf(err, "blob %s", id)
	}

	return blob, true, nil
}

// Save writes to a temporary file first so readers never see a partial blob.
func (s *DirStore) Save(ctx context.Context, id string, blob *Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := blob.Marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary blob file")
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())

		return errors.Wrapf(err, "unable to write blob %s", id)
	}

	err = os.Rename(tmp.Name(), s.Path(id))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return errors.Wrapf(err, "unable to move blob %s into place", id)
	}

	return nil
}

var _ Store = (*DirStore)(nil)
