package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	dErrors "policydesk/pkg/domain-errors"
)

// MaxPickBytes caps a picked file before downsizing.
const MaxPickBytes = 10 << 20

// ErrPickCancelled is returned by pickers when the agent closes the dialog.
var ErrPickCancelled = errors.New("file selection cancelled")

// Picker lets the agent choose an existing file.
type Picker interface {
	Pick(ctx context.Context) (name string, body io.ReadCloser, err error)
}

// FileSource reads a picked file and checks it is an image.
type FileSource struct {
	picker   Picker
	maxBytes int64
}

func NewFileSource(picker Picker) *FileSource {
	return &FileSource{picker: picker, maxBytes: MaxPickBytes}
}

func (f *FileSource) Kind() SourceKind { return SourceFile }

func (f *FileSource) Acquire(ctx context.Context) (Content, error) {
	name, body, err := f.picker.Pick(ctx)
	if err != nil {
		return Content{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return Content{}, fmt.Errorf("read picked file: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return Content{}, dErrors.New(dErrors.CodeValidation, "La imagen excede el tamaño máximo permitido.")
	}
	if len(data) == 0 {
		return Content{}, dErrors.New(dErrors.CodeValidation, "El archivo está vacío.")
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") && !isHEIF(data) {
		return Content{}, dErrors.New(dErrors.CodeValidation, "Selecciona un archivo de imagen.")
	}
	if isHEIF(data) {
		contentType = "image/heic"
	}

	content := Content{
		FileName:    sanitizeFileName(name),
		ContentType: contentType,
		Data:        data,
		Source:      SourceFile,
	}
	// Formats without a registered decoder keep zero dimensions and pass through.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		content.Width, content.Height = cfg.Width, cfg.Height
	}
	return content, nil
}

// isHEIF spots the ftyp box phones write for HEIC photos, which net/http does not sniff.
func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "mif1", "msf1", "hevc":
		return true
	}
	return false
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "foto.jpg"
	}
	if len(name) > 128 {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:128-len(ext)] + ext
	}
	return name
}

// ReaderPicker serves an already-received upload as a picked file.
type ReaderPicker struct {
	Name string
	Body io.Reader
}

func (p ReaderPicker) Pick(ctx context.Context) (string, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if p.Body == nil {
		return "", nil, ErrPickCancelled
	}
	return p.Name, io.NopCloser(p.Body), nil
}
