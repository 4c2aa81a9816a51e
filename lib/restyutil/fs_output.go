package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	devenv "tarjomic-watch/dev/env"
)

// FilesystemOutput writes one file per HTTP exchange into a directory, the directory is
// emptied when the output is created.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput accepts paths prefixed with `<dev_state>`, see devenv.ResolvePath.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
