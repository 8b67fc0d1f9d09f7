package jsonfiledb

import (
	"encoding/json"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/aviator-co/pstack/internal/meta"
)

type file struct {
	// Incremented on every write.
	Generation int64       `json:"generation"`
	Stack      *meta.State `json:"stack"`
}

func readFile(path string) (*file, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapIff(err, "failed to read stack state file %q", path)
	}
	var f file
	if len(data) == 0 {
		return &f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapIff(err, "failed to read stack state file %q", path)
	}
	return &f, nil
}

// write atomically replaces the file at path.
func (f *file) write(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.WrapIff(err, "failed to encode stack state")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.WrapIff(err, "failed to write stack state file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return errors.WrapIff(err, "failed to write stack state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIff(err, "failed to write stack state file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIff(err, "failed to write stack state file")
	}
	return nil
}
