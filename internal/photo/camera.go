package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// Camera is a capture device. Open asks for access and starts a live stream.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera feed. Stop must be safe to call more than once.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

// CameraSource captures one still frame and encodes it as JPEG. The stream is
// stopped on every path out of Acquire, including cancellation.
type CameraSource struct {
	camera  Camera
	quality int
	now     func() time.Time
}

func NewCameraSource(camera Camera, quality int) *CameraSource {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &CameraSource{camera: camera, quality: quality, now: time.Now}
}

func (c *CameraSource) Kind() SourceKind { return SourceCamera }

func (c *CameraSource) Acquire(ctx context.Context) (Content, error) {
	if c.camera == nil {
		return Content{}, &CapabilityError{Source: SourceCamera, Reason: ReasonUnavailable}
	}
	stream, err := c.camera.Open(ctx)
	if err != nil {
		return Content{}, classifyOpenError(err)
	}
	defer stream.Stop()

	frame, err := stream.Frame(ctx)
	if err != nil {
		return Content{}, fmt.Errorf("capture frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: c.quality}); err != nil {
		return Content{}, fmt.Errorf("encode frame: %w", err)
	}
	b := frame.Bounds()
	return Content{
		FileName:    fmt.Sprintf("captura-%d.jpg", c.now().UnixMilli()),
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		Source:      SourceCamera,
	}, nil
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &CapabilityError{Source: SourceCamera, Reason: ReasonDenied, Err: err}
	case errors.Is(err, ErrNoCamera):
		return &CapabilityError{Source: SourceCamera, Reason: ReasonUnavailable, Err: err}
	default:
		return fmt.Errorf("open camera: %w", err)
	}
}

// FrameCamera serves a frame that was captured on the agent's device and sent with
// the request. Each Open decodes the frame afresh.
type FrameCamera struct {
	data []byte
}

func NewFrameCamera(data []byte) *FrameCamera {
	return &FrameCamera{data: data}
}

func (f *FrameCamera) Open(ctx context.Context) (Stream, error) {
	if len(f.data) == 0 {
		return nil, ErrNoCamera
	}
	img, _, err := image.Decode(bytes.NewReader(f.data))
	if err != nil {
		return nil, fmt.Errorf("%w: frame is not a decodable image", ErrNoCamera)
	}
	return &frameStream{img: img}, nil
}

type frameStream struct {
	img     image.Image
	stopped bool
}

func (s *frameStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.stopped {
		return nil, errors.New("stream stopped")
	}
	return s.img, nil
}

func (s *frameStream) Stop() { s.stopped = true }
