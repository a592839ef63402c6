package photo

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// DownsizeOptions bound the encoded size and resolution of uploaded photos.
type DownsizeOptions struct {
	MaxBytes     int
	MaxDimension int
	Quality      int
	// ScaleStep shrinks the target dimension on each retry.
	ScaleStep   float64
	MaxAttempts int
}

// DefaultDownsizeOptions: 1.5 MB, 1920 px, JPEG quality 70, three attempts.
func DefaultDownsizeOptions() DownsizeOptions {
	return DownsizeOptions{
		MaxBytes:     1536 * 1024,
		MaxDimension: 1920,
		Quality:      70,
		ScaleStep:    0.8,
		MaxAttempts:  3,
	}
}

func (o DownsizeOptions) withDefaults() DownsizeOptions {
	d := DefaultDownsizeOptions()
	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = d.MaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = d.Quality
	}
	if o.ScaleStep <= 0 || o.ScaleStep >= 1 {
		o.ScaleStep = d.ScaleStep
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	return o
}

// Report describes what Downsize did.
type Report struct {
	OriginalBytes int
	FinalBytes    int
	Attempts      int
	// Reencoded is false when the original bytes were kept.
	Reencoded bool
}

// Saved returns how many bytes the re-encode removed.
func (r Report) Saved() int {
	return max(r.OriginalBytes-r.FinalBytes, 0)
}

// Downsize re-encodes oversized photos as JPEG. It is best effort and never fails:
// content within limits and content it cannot decode come back unchanged, and when
// no attempt gets under MaxBytes the smallest attempt wins.
func Downsize(c Content, opts DownsizeOptions) (Content, Report) {
	opts = opts.withDefaults()
	report := Report{OriginalBytes: c.Size(), FinalBytes: c.Size()}

	// unknown dimensions (zero) count as within limits
	if c.Size() <= opts.MaxBytes && c.MaxDimension() <= opts.MaxDimension {
		return c, report
	}

	img, _, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return c, report
	}

	best, replaced := c, false
	target := float64(opts.MaxDimension)
	quality := opts.Quality
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		report.Attempts = attempt
		candidate, ok := encodeScaled(img, int(target), quality)
		if !ok {
			break
		}
		// an oversized original loses to any attempt; attempts compete on bytes
		if (!replaced && !c.fitsDims(opts.MaxDimension)) || candidate.Size() < best.Size() {
			best, replaced = candidate, true
		}
		if best.Size() <= opts.MaxBytes && best.fitsDims(opts.MaxDimension) {
			break
		}
		target *= opts.ScaleStep
		quality = max(quality-10, 40)
	}

	if !replaced {
		return c, report
	}
	best.FileName = jpegName(c.FileName)
	best.Source = c.Source
	report.FinalBytes = best.Size()
	report.Reencoded = true
	return best, report
}

func (c Content) fitsDims(limit int) bool {
	return c.Width > 0 && c.MaxDimension() <= limit
}

func encodeScaled(src image.Image, maxDim, quality int) (Content, bool) {
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxDim)
	var scaled image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		scaled = dst
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
		return Content{}, false
	}
	return Content{ContentType: "image/jpeg", Data: buf.Bytes(), Width: w, Height: h}, true
}

// fitWithin scales (w, h) so the larger side is at most limit, keeping aspect ratio.
func fitWithin(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

func jpegName(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".jpg") || strings.EqualFold(ext, ".jpeg") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

// Prepared is a slot's content ready for upload.
type Prepared struct {
	SlotID  string
	Content Content
	Report  Report
}

// Finalize downsizes every filled slot concurrently. The result follows the order of
// slots; empty slots are skipped. Only cancellation makes it fail.
func Finalize(ctx context.Context, slots []*Slot, opts DownsizeOptions) ([]Prepared, error) {
	out := make([]Prepared, len(slots))
	filled := make([]bool, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		content, ok := slot.Content()
		if !ok {
			continue
		}
		filled[i] = true
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			small, report := Downsize(content, opts)
			out[i] = Prepared{SlotID: slot.ID(), Content: small, Report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prepared := make([]Prepared, 0, len(slots))
	for i, p := range out {
		if filled[i] {
			prepared = append(prepared, p)
		}
	}
	return prepared, nil
}
