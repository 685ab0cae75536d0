package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvr-ai/go-tiled/common"
	"github.com/nvr-ai/go-tiled/models/postprocess"
)

// object is a synthetic target painted into a test image. Pixels with R=255
// belong to an object; G encodes confidence and B the object id.
type object struct {
	rect image.Rectangle
	conf uint8
	id   uint8
}

func scene(w, h int, objects ...object) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.NRGBA{A: 255}}, image.Point{}, draw.Src)
	for _, o := range objects {
		c := color.NRGBA{R: 255, G: o.conf, B: o.id, A: 255}
		draw.Draw(img, o.rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
	return img
}

// colorDetector finds painted objects in a tile. Boxes touching the tile
// border are reported with 0.1 lower confidence, like a truncated object.
type colorDetector struct {
	calls  int64
	jitter time.Duration
	mu     sync.Mutex
	rng    *rand.Rand
}

func (d *colorDetector) Detect(ctx context.Context, tile image.Image, conf float64) ([]postprocess.Detection, error) {
	atomic.AddInt64(&d.calls, 1)
	if d.jitter > 0 {
		d.mu.Lock()
		delay := time.Duration(d.rng.Int63n(int64(d.jitter)))
		d.mu.Unlock()
		time.Sleep(delay)
	}

	type key struct{ g, b uint8 }
	boxes := map[key]image.Rectangle{}
	b := tile.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(tile.At(x, y)).(color.NRGBA)
			if c.R != 255 {
				continue
			}
			k := key{c.G, c.B}
			px := image.Rect(x, y, x+1, y+1)
			if r, ok := boxes[k]; ok {
				boxes[k] = r.Union(px)
			} else {
				boxes[k] = px
			}
		}
	}

	var out []postprocess.Detection
	for k, r := range boxes {
		score := float64(k.g) / 255
		if r.Min.X == b.Min.X || r.Min.Y == b.Min.Y || r.Max.X == b.Max.X || r.Max.Y == b.Max.Y {
			score -= 0.1
		}
		if score <= conf {
			continue
		}
		out = append(out, postprocess.Detection{
			Box:        common.FromRect(r.Sub(b.Min)),
			Confidence: score,
			ClassID:    int(k.b),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out, nil
}

// scriptedDetector returns canned responses in call order.
type scriptedDetector struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) ([]postprocess.Detection, error)
}

func (d *scriptedDetector) Detect(ctx context.Context, tile image.Image, conf float64) ([]postprocess.Detection, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.mu.Unlock()
	return d.fn(call)
}

func (d *scriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// paddedDetector reports a training pad colour.
type paddedDetector struct {
	scriptedDetector
	pad color.Color
}

func (d *paddedDetector) PadColor() color.Color { return d.pad }
