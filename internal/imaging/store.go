package imaging

import (
	"fmt"

	"github.com/spf13/afero"
)

// Store keeps normalized uploads in temporary files for the lifetime of a
// request.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a Store writing to dir on fs. An empty dir means the
// system temporary directory.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// TempFile is a stored upload. Call Cleanup when the request finishes.
type TempFile struct {
	Path string
	fs   afero.Fs
}

// Save writes img.PNG to a new temporary file.
func (s *Store) Save(img *Image) (*TempFile, error) {
	file, err := afero.TempFile(s.fs, s.dir, "storypaint-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmp := &TempFile{Path: file.Name(), fs: s.fs}

	if _, err := file.Write(img.PNG); err != nil {
		file.Close()
		tmp.Cleanup()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		tmp.Cleanup()
		return nil, fmt.Errorf("closing temp file: %w", err)
	}
	return tmp, nil
}

// ReadAll returns the stored bytes.
func (f *TempFile) ReadAll() ([]byte, error) {
	return afero.ReadFile(f.fs, f.Path)
}

// Cleanup removes the file. Removing an already removed file is not an error.
func (f *TempFile) Cleanup() error {
	if err := f.fs.Remove(f.Path); err != nil {
		if exists, _ := afero.Exists(f.fs, f.Path); exists {
			return fmt.Errorf("removing temp file: %w", err)
		}
	}
	return nil
}
