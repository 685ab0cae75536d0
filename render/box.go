package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-tiled/images"
	"github.com/nvr-ai/go-tiled/models"
	"github.com/nvr-ai/go-tiled/models/postprocess"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Renderer draws detections in image coordinates.
type Renderer struct {
	style   Style
	classes *models.ClassSet
	palette []color.RGBA
}

// NewRenderer creates a renderer. classes may be nil, in which case labels
// come from Detection.Label or the class index.
func NewRenderer(style Style, classes *models.ClassSet) *Renderer {
	if style.Thickness <= 0 {
		style.Thickness = 1
	}
	return &Renderer{
		style:   style,
		classes: classes,
		palette: Palette(style.PaletteSize),
	}
}

// Label returns the text drawn for a detection, e.g. "tower_crane 0.91".
func (r *Renderer) Label(d postprocess.Detection) string {
	name := d.Label
	if name == "" {
		name = r.classes.Label(d.ClassID)
	}
	return fmt.Sprintf("%s %.2f", name, d.Confidence)
}

// ColorFor returns the box colour for a class.
func (r *Renderer) ColorFor(classID int) color.RGBA {
	if !r.style.PerClassColors || len(r.palette) == 0 {
		return r.style.Color
	}
	if classID < 0 {
		classID = -classID
	}
	return r.palette[classID%len(r.palette)]
}

// labelOrigin places the label baseline above the box, or inside it when the
// box touches the top edge.
func (r *Renderer) labelOrigin(box image.Rectangle, textHeight int) image.Point {
	y := box.Min.Y - r.style.LabelOffset
	if y < textHeight {
		y = box.Min.Y + textHeight + r.style.LabelOffset
	}
	return image.Pt(box.Min.X, y)
}

// DrawMat draws one box and one label per detection onto mat in place.
//
// Arguments:
//   - mat: A BGR image matching the detections' coordinate frame.
//   - detections: Image-global detections.
func (r *Renderer) DrawMat(mat *gocv.Mat, detections []postprocess.Detection) {
	font := r.style.Font
	for _, d := range detections {
		rect := d.Box.ToRect()
		clr := r.ColorFor(d.ClassID)
		gocv.Rectangle(mat, rect, clr, r.style.Thickness)

		text := r.Label(d)
		size := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
		gocv.PutTextWithParams(mat, text, r.labelOrigin(rect, size.Y),
			font.Face, font.Scale, clr, font.Thickness, font.LineType, false)
	}
}

// Draw copies img into a new BGR Mat and draws the detections on it. The
// caller must Close the returned Mat.
func (r *Renderer) Draw(img image.Image, detections []postprocess.Detection) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "convert image to mat")
	}
	r.DrawMat(&mat, detections)
	return mat, nil
}

// Annotate returns a copy of img with the detections drawn on it.
func (r *Renderer) Annotate(img image.Image, detections []postprocess.Detection) (image.Image, error) {
	mat, err := r.Draw(img, detections)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	out, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert mat to image")
	}
	return out, nil
}

// Save draws the detections on a copy of img and writes it to path. The
// format follows the file extension.
func (r *Renderer) Save(path string, img image.Image, detections []postprocess.Detection) error {
	mat, err := r.Draw(img, detections)
	if err != nil {
		return err
	}
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		return errors.Errorf("failed to write %s", path)
	}
	return nil
}

// Preview returns an annotated copy of img scaled so its longest side is at
// most maxSide pixels.
func (r *Renderer) Preview(img image.Image, detections []postprocess.Detection, maxSide int) (image.Image, error) {
	out, err := r.Annotate(img, detections)
	if err != nil {
		return nil, err
	}
	return images.Thumbnail(out, maxSide), nil
}
