// Package photo acquires requirement photographs from a camera or a file picker,
// keeps them in per-requirement slots with a preview, and downsizes them before upload.
package photo

import (
	"context"
	"errors"
	"fmt"

	dErrors "policydesk/pkg/domain-errors"
)

// SourceKind names an acquisition path.
type SourceKind string

const (
	SourceCamera SourceKind = "camera"
	SourceFile   SourceKind = "file"
)

// ParseSourceKind accepts "camera" or "file"; empty means file.
func ParseSourceKind(raw string) (SourceKind, error) {
	switch SourceKind(raw) {
	case SourceCamera:
		return SourceCamera, nil
	case SourceFile, "":
		return SourceFile, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "source must be camera or file")
	}
}

// Content is an encoded image plus what is known about it. Width and Height are
// zero when the format could not be decoded.
type Content struct {
	FileName    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	Source      SourceKind
}

func (c Content) Size() int { return len(c.Data) }

// MaxDimension returns the larger side in pixels.
func (c Content) MaxDimension() int { return max(c.Width, c.Height) }

// Source is one way of obtaining a photo.
type Source interface {
	Kind() SourceKind
	Acquire(ctx context.Context) (Content, error)
}

// CapabilityReason says why a source cannot be used.
type CapabilityReason string

const (
	ReasonUnavailable CapabilityReason = "unavailable"
	ReasonDenied      CapabilityReason = "denied"
)

// Camera drivers return these from Open; CameraSource turns them into *CapabilityError.
var (
	ErrNoCamera         = errors.New("no camera available")
	ErrPermissionDenied = errors.New("camera permission denied")
)

// CapabilityError reports a source that cannot be used on this device. It is
// recoverable: the caller falls back to another source.
type CapabilityError struct {
	Source SourceKind
	Reason CapabilityReason
	Err    error
}

func (e *CapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Source, e.Reason)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// AsCapabilityError extracts a capability failure from err's chain.
func AsCapabilityError(err error) (*CapabilityError, bool) {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Acquirer selects a source by kind at runtime.
type Acquirer struct {
	sources map[SourceKind]Source
}

func NewAcquirer(sources ...Source) *Acquirer {
	a := &Acquirer{sources: make(map[SourceKind]Source, len(sources))}
	for _, s := range sources {
		if s != nil {
			a.sources[s.Kind()] = s
		}
	}
	return a
}

// Source returns the registered source for kind. A missing camera is reported as
// a capability error so the caller offers the file picker instead.
func (a *Acquirer) Source(kind SourceKind) (Source, error) {
	if s, ok := a.sources[kind]; ok {
		return s, nil
	}
	return nil, &CapabilityError{Source: kind, Reason: ReasonUnavailable}
}

// Acquire obtains a photo from the source of the given kind.
func (a *Acquirer) Acquire(ctx context.Context, kind SourceKind) (Content, error) {
	src, err := a.Source(kind)
	if err != nil {
		return Content{}, err
	}
	return src.Acquire(ctx)
}
