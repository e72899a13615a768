// internal/artifacts/file.go
package artifacts

import (
	"context"
	"os"
	"path/filepath"

	apperrors "listing-grader/internal/common/errors"
)

const sinkFile = "file"

// FileWriter writes artifacts below a root directory. Files are replaced
// atomically through a temp file and rename.
type FileWriter struct {
	Dir string
}

func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{Dir: dir}
}

func (f *FileWriter) Write(ctx context.Context, name string, value interface{}) (err error) {
	defer func() { record(sinkFile, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(f.Dir, filepath.FromSlash(name))

	data, err := encode(value)
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkFile, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkFile, path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkFile, path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return apperrors.NewArtifactWriteFailedError(sinkFile, path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkFile, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkFile, path, err)
	}
	return nil
}
