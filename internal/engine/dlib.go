package engine

import (
	"fmt"
	"image"

	"github.com/Kagami/go-face"
	"github.com/andresmejia3/samaritan/internal/types"
)

// Dlib runs detection and encoding in-process through go-face.
//
// go-face computes boxes and descriptors in one call, so the result for the
// last image is kept and Encode reuses it when called with the same image.
type Dlib struct {
	rec   *face.Recognizer
	last  image.Image
	faces []face.Face
}

// NewDlib loads the dlib models from dir (shape predictor, resnet, cnn/hog detector).
func NewDlib(dir string) (*Dlib, error) {
	rec, err := face.NewRecognizer(dir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models from %s: %w", dir, err)
	}
	return &Dlib{rec: rec}, nil
}

func (d *Dlib) recognize(img image.Image) ([]face.Face, error) {
	if d.last != nil && d.last == img {
		return d.faces, nil
	}
	jpeg, err := EncodeJPEG(img)
	if err != nil {
		return nil, err
	}
	faces, err := d.rec.Recognize(jpeg)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	d.last, d.faces = img, faces
	return faces, nil
}

func (d *Dlib) Detect(img image.Image) ([]types.Box, error) {
	faces, err := d.recognize(img)
	if err != nil {
		return nil, err
	}
	boxes := make([]types.Box, len(faces))
	for i, f := range faces {
		boxes[i] = types.BoxFromRect(f.Rectangle)
	}
	return boxes, nil
}

func (d *Dlib) Encode(img image.Image, boxes []types.Box) ([]types.Descriptor, error) {
	faces, err := d.recognize(img)
	if err != nil {
		return nil, err
	}
	have := make([]types.Box, len(faces))
	for i, f := range faces {
		have[i] = types.BoxFromRect(f.Rectangle)
	}

	out := make([]types.Descriptor, len(boxes))
	for i, j := range Align(boxes, have) {
		if j < 0 {
			return nil, fmt.Errorf("no descriptor for face at %v", boxes[i].Loc())
		}
		out[i] = toDescriptor(faces[j].Descriptor)
	}
	return out, nil
}

func toDescriptor(v face.Descriptor) types.Descriptor {
	d := make(types.Descriptor, len(v))
	for i, x := range v {
		d[i] = float64(x)
	}
	return d
}

func (d *Dlib) Close() error {
	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	d.last, d.faces = nil, nil
	return nil
}
