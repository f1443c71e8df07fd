// Package images loads the image batch from disk and provides the helpers the
// pipeline runs on image bytes: MIME sniffing, dimension probing, embedded
// metadata extraction and perceptual duplicate detection.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// Image is a handle to one source image. Bytes are read on demand unless the
// image was built from memory.
type Image struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`

	data []byte
}

// FromFile builds an Image for path without reading the whole file.
func FromFile(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)

	return &Image{
		ID:       uuid.New().String(),
		Name:     filepath.Base(path),
		Path:     path,
		MIMEType: DetectMIME(path, head[:n]),
		Size:     info.Size(),
	}, nil
}

// FromBytes builds an in-memory Image.
func FromBytes(name string, data []byte) *Image {
	return &Image{
		ID:       uuid.New().String(),
		Name:     name,
		MIMEType: DetectMIME(name, data),
		Size:     int64(len(data)),
		data:     data,
	}
}

// Bytes returns the image content.
func (img *Image) Bytes() ([]byte, error) {
	if img.data != nil {
		return img.data, nil
	}
	if img.Path == "" {
		return nil, fmt.Errorf("image %s has no data", img.Name)
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", img.Name, err)
	}
	return data, nil
}

// IsImage reports whether the MIME type is image/*.
func (img *Image) IsImage() bool {
	return strings.HasPrefix(img.MIMEType, "image/")
}

// DetectMIME sniffs content first and falls back to the file extension when
// the sniffer only knows it is binary.
func DetectMIME(name string, head []byte) string {
	sniffed := http.DetectContentType(head)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		if strings.HasPrefix(byExt, "image/") && (sniffed == "application/octet-stream" || len(head) == 0) {
			return byExt
		}
	}
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// Dimensions decodes only the image header. Supports JPEG, PNG, GIF and WebP.
func Dimensions(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}
