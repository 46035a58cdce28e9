package extraction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned for files whose content is not an image.
var ErrNotImage = errors.New("extraction: file is not an image")

// AllowedExtensions are offered by the file picker.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".heic", ".gif"}

// Image is a selected image file.
type Image struct {
	Path string
	Name string
	MIME string
	Size int64
}

// LoadImage inspects path and accepts it only if its content sniffs as an
// image/* type.
func LoadImage(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotImage, path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect image type: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	return &Image{
		Path: path,
		Name: filepath.Base(path),
		MIME: mt.String(),
		Size: info.Size(),
	}, nil
}
