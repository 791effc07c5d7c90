package validation

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrInvalidFile wraps every rejection of an uploaded file.
var ErrInvalidFile = errors.New("invalid file")

// ImageRules describes which uploads are accepted as images. Types maps a
// sniffed content type to the extensions a file of that type may carry; the
// first extension is the one it is stored under.
type ImageRules struct {
	MaxSize int64
	Types   map[string][]string
}

// AvatarRules accepts JPEG, PNG and WebP up to 5 MB.
var AvatarRules = ImageRules{
	MaxSize: 5 << 20,
	Types: map[string][]string{
		"image/jpeg": {".jpg", ".jpeg"},
		"image/png":  {".png"},
		"image/webp": {".webp"},
	},
}

// Image is an upload that passed CheckImage.
type Image struct {
	ContentType string
	Ext         string
}

// CheckImage sniffs the first 512 bytes of the upload, so a renamed file or
// a forged Content-Type header is rejected. The file is rewound afterwards.
func (r ImageRules) CheckImage(header *multipart.FileHeader) (*Image, error) {
	if header.Size > r.MaxSize {
		return nil, fmt.Errorf("%w: maximum size is %d MB", ErrInvalidFile, r.MaxSize>>20)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	contentType := http.DetectContentType(sniff[:n])
	exts, ok := r.Types[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: type %s is not allowed", ErrInvalidFile, contentType)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	for _, allowed := range exts {
		if ext == allowed {
			return &Image{ContentType: contentType, Ext: exts[0]}, nil
		}
	}
	return nil, fmt.Errorf("%w: extension %q does not match %s", ErrInvalidFile, ext, contentType)
}
