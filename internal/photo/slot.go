package photo

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// previewDimension is the larger side of a preview thumbnail.
const previewDimension = 320

// Previews hands out short-lived preview handles. Every handle must be released.
type Previews interface {
	Create(c Content) string
	Release(handle string)
}

// PreviewRegistry keeps thumbnails in memory until released.
type PreviewRegistry struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{items: make(map[string][]byte)}
}

// Create stores a JPEG thumbnail of c. Undecodable content gets a handle without bytes.
func (r *PreviewRegistry) Create(c Content) string {
	handle := uuid.NewString()
	thumb := thumbnail(c.Data)
	r.mu.Lock()
	r.items[handle] = thumb
	r.mu.Unlock()
	return handle
}

func (r *PreviewRegistry) Release(handle string) {
	r.mu.Lock()
	delete(r.items, handle)
	r.mu.Unlock()
}

// Get returns the thumbnail for a live handle.
func (r *PreviewRegistry) Get(handle string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	thumb, ok := r.items[handle]
	return thumb, ok && len(thumb) > 0
}

// Active counts handles not yet released.
func (r *PreviewRegistry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func thumbnail(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), previewDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 60}); err != nil {
		return nil
	}
	return buf.Bytes()
}

// Slot holds the locally captured content for one photo requirement until upload.
type Slot struct {
	mu       sync.Mutex
	id       string
	previews Previews
	content  *Content
	preview  string
}

func NewSlot(id string, previews Previews) *Slot {
	return &Slot{id: id, previews: previews}
}

func (s *Slot) ID() string { return s.id }

// Capture acquires from src and fills the slot. On failure the previous content stays.
func (s *Slot) Capture(ctx context.Context, src Source) error {
	content, err := src.Acquire(ctx)
	if err != nil {
		return err
	}
	s.Set(content)
	return nil
}

// Set replaces the slot content, releasing the previous preview.
func (s *Slot) Set(c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.content = &c
	if s.previews != nil {
		s.preview = s.previews.Create(c)
	}
}

func (s *Slot) Content() (Content, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.content == nil {
		return Content{}, false
	}
	return *s.content, true
}

// Preview returns the current preview handle, empty when the slot is empty.
func (s *Slot) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

func (s *Slot) Filled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content != nil
}

// Remove clears the slot and releases its preview.
func (s *Slot) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.content = nil
}

// Close releases held resources on teardown.
func (s *Slot) Close() { s.Remove() }

func (s *Slot) releaseLocked() {
	if s.preview != "" && s.previews != nil {
		s.previews.Release(s.preview)
	}
	s.preview = ""
}
