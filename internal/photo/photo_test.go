package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "policydesk/pkg/domain-errors"
)

type fakeCamera struct {
	openErr  error
	frameErr error
	stops    atomic.Int32
}

func (c *fakeCamera) Open(ctx context.Context) (Stream, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return &fakeStream{cam: c}, nil
}

type fakeStream struct{ cam *fakeCamera }

func (s *fakeStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cam.frameErr != nil {
		return nil, s.cam.frameErr
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.White)
	return img, nil
}

func (s *fakeStream) Stop() { s.cam.stops.Add(1) }

func TestCameraSource(t *testing.T) {
	t.Run("captures a JPEG still and stops the stream", func(t *testing.T) {
		cam := &fakeCamera{}
		content, err := NewCameraSource(cam, 80).Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", content.ContentType)
		assert.Equal(t, SourceCamera, content.Source)
		assert.Equal(t, 40, content.Width)
		assert.True(t, strings.HasSuffix(content.FileName, ".jpg"))
		assert.Equal(t, int32(1), cam.stops.Load())
	})

	t.Run("denied permission is a recoverable capability error", func(t *testing.T) {
		cam := &fakeCamera{openErr: ErrPermissionDenied}
		_, err := NewCameraSource(cam, 80).Acquire(context.Background())
		ce, ok := AsCapabilityError(err)
		require.True(t, ok)
		assert.Equal(t, ReasonDenied, ce.Reason)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("missing device is unavailable", func(t *testing.T) {
		_, err := NewCameraSource(nil, 80).Acquire(context.Background())
		ce, ok := AsCapabilityError(err)
		require.True(t, ok)
		assert.Equal(t, ReasonUnavailable, ce.Reason)
	})

	t.Run("stream is released when capture fails", func(t *testing.T) {
		cam := &fakeCamera{frameErr: errors.New("sensor glitch")}
		_, err := NewCameraSource(cam, 80).Acquire(context.Background())
		require.Error(t, err)
		assert.Equal(t, int32(1), cam.stops.Load())
	})

	t.Run("closing the dialog releases the stream", func(t *testing.T) {
		cam := &fakeCamera{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewCameraSource(cam, 80).Acquire(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), cam.stops.Load())
	})
}

func TestFrameCamera(t *testing.T) {
	data := solidPNG(t, 32, 32)
	content, err := NewCameraSource(NewFrameCamera(data), 70).Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", content.ContentType)

	_, err = NewCameraSource(NewFrameCamera([]byte("not an image")), 70).Acquire(context.Background())
	_, ok := AsCapabilityError(err)
	assert.True(t, ok)
}

func TestFileSource(t *testing.T) {
	t.Run("accepts images and records dimensions", func(t *testing.T) {
		src := NewFileSource(ReaderPicker{Name: "C:\\fotos\\fachada.png", Body: bytes.NewReader(solidPNG(t, 50, 20))})
		content, err := src.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fachada.png", content.FileName)
		assert.Equal(t, "image/png", content.ContentType)
		assert.Equal(t, 50, content.Width)
		assert.Equal(t, 20, content.Height)
		assert.Equal(t, SourceFile, content.Source)
	})

	t.Run("rejects non-images", func(t *testing.T) {
		src := NewFileSource(ReaderPicker{Name: "notas.txt", Body: strings.NewReader("hola")})
		_, err := src.Acquire(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts HEIC without decoding it", func(t *testing.T) {
		heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		heic = append(heic, bytes.Repeat([]byte{1}, 64)...)
		content, err := NewFileSource(ReaderPicker{Name: "IMG_0001.HEIC", Body: bytes.NewReader(heic)}).Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "image/heic", content.ContentType)
		assert.Zero(t, content.Width)
	})

	t.Run("cancelled pick", func(t *testing.T) {
		_, err := NewFileSource(ReaderPicker{}).Acquire(context.Background())
		assert.ErrorIs(t, err, ErrPickCancelled)
	})
}

func TestAcquirerFallsBackWhenCameraMissing(t *testing.T) {
	a := NewAcquirer(NewFileSource(ReaderPicker{Name: "a.png", Body: bytes.NewReader(solidPNG(t, 4, 4))}))

	_, err := a.Acquire(context.Background(), SourceCamera)
	_, ok := AsCapabilityError(err)
	require.True(t, ok)

	content, err := a.Acquire(context.Background(), SourceFile)
	require.NoError(t, err)
	assert.Equal(t, "a.png", content.FileName)
}

func TestSlotReleasesPreviews(t *testing.T) {
	previews := NewPreviewRegistry()
	slot := NewSlot("hull", previews)

	slot.Set(Content{FileName: "1.png", Data: solidPNG(t, 400, 300)})
	first := slot.Preview()
	thumb, ok := previews.Get(first)
	require.True(t, ok)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)

	slot.Set(Content{FileName: "2.png", Data: solidPNG(t, 10, 10)})
	assert.NotEqual(t, first, slot.Preview())
	_, ok = previews.Get(first)
	assert.False(t, ok, "re-capture releases the previous preview")
	assert.Equal(t, 1, previews.Active())

	failing := &fakeCamera{openErr: ErrNoCamera}
	err = slot.Capture(context.Background(), NewCameraSource(failing, 70))
	require.Error(t, err)
	content, ok := slot.Content()
	require.True(t, ok, "failed capture keeps the previous content")
	assert.Equal(t, "2.png", content.FileName)

	slot.Remove()
	assert.False(t, slot.Filled())
	assert.Empty(t, slot.Preview())
	assert.Equal(t, 0, previews.Active())

	slot.Close()
	assert.Equal(t, 0, previews.Active())
}

func TestParseSourceKind(t *testing.T) {
	kind, err := ParseSourceKind("")
	require.NoError(t, err)
	assert.Equal(t, SourceFile, kind)

	kind, err = ParseSourceKind("camera")
	require.NoError(t, err)
	assert.Equal(t, SourceCamera, kind)

	_, err = ParseSourceKind("scanner")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
