package api

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// saveFormFile stages an upload under dir. The file name is unique per call,
// so concurrent uploads never share a path. The caller must run cleanup.
func saveFormFile(header *multipart.FileHeader, dir string) (string, func(), error) {
	if header == nil {
		return "", nil, errors.New("file header is nil")
	}
	src, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(header.Filename)))
	tmp, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logrus.WithError(err).WithField("path", tmp.Name()).Warn("remove staged upload")
		}
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
