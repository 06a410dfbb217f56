package enroll

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/disintegration/imaging"
)

// ErrNoFace is reported for enrollment images in which no face was found.
var ErrNoFace = errors.New("no face detected")

// Detector locates faces in an image.
type Detector interface {
	Detect(img image.Image) ([]types.Box, error)
}

// Encoder returns one descriptor per box, index-aligned with boxes.
type Encoder interface {
	Encode(img image.Image, boxes []types.Box) ([]types.Descriptor, error)
}

// Folder is one enrollment directory and the role of every face inside it.
type Folder struct {
	Name string
	Role types.Role
}

// DefaultFolders is the fixed folder → role table, iterated in this order.
var DefaultFolders = []Folder{
	{Name: "admins", Role: types.RoleAdmin},
	{Name: "primary_assets", Role: types.RolePrimaryAsset},
	{Name: "assets", Role: types.RoleAsset},
	{Name: "threats", Role: types.RoleThreat},
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Result is the outcome for a single enrollment file: either Face is set or Err is.
type Result struct {
	Path string
	Face *types.EnrolledFace
	Err  error
}

// OK reports whether the file produced an enrolled face.
func (r Result) OK() bool { return r.Err == nil && r.Face != nil }

// Builder turns role-labeled folders of reference photos into the enrollment cache.
type Builder struct {
	Detector Detector
	Encoder  Encoder
	// Load decodes an image file. Defaults to imaging.Open with EXIF auto-orientation.
	Load func(path string) (image.Image, error)
	// OnResult is called once per file, in processing order. Optional.
	OnResult func(Result)
}

// Source is an enrollment file paired with its role.
type Source struct {
	Path string
	Role types.Role
}

// Scan lists the image files of every folder under root, folder order first then
// file name order. Subdirectories are not traversed. Folders that cannot be read
// are returned in missing and otherwise ignored.
func Scan(root string, folders []Folder) (sources []Source, missing []error) {
	for _, f := range folders {
		dir := filepath.Join(root, f.Name)
		entries, err := os.ReadDir(dir)
		if err != nil {
			missing = append(missing, fmt.Errorf("read folder %s: %w", dir, err))
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !IsImage(e.Name()) {
				continue
			}
			sources = append(sources, Source{Path: filepath.Join(dir, e.Name()), Role: f.Role})
		}
	}
	return sources, missing
}

// IsImage reports whether name carries a recognised image extension (case-insensitive).
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// DisplayName derives the on-screen name from a file name: extension dropped,
// first letter upper-cased, the rest lower-cased.
func DisplayName(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	runes := []rune(strings.ToLower(stem))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Build enrolls every source in order. A failing file never aborts the batch:
// its fault is recorded in the returned results and the next file is processed.
// Only the first face of a multi-face photo is enrolled.
func (b *Builder) Build(sources []Source) ([]types.EnrolledFace, []Result) {
	load := b.Load
	if load == nil {
		load = func(path string) (image.Image, error) {
			return imaging.Open(path, imaging.AutoOrientation(true))
		}
	}

	var faces []types.EnrolledFace
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		res := b.enrollOne(load, src)
		if res.OK() {
			faces = append(faces, *res.Face)
		}
		results = append(results, res)
		if b.OnResult != nil {
			b.OnResult(res)
		}
	}
	return faces, results
}

func (b *Builder) enrollOne(load func(string) (image.Image, error), src Source) (res Result) {
	res.Path = src.Path

	// Decoders and native engines may panic on malformed input; contain it to this file.
	defer func() {
		if r := recover(); r != nil {
			res.Face = nil
			res.Err = fmt.Errorf("processing panicked: %v", r)
		}
	}()

	color, ok := src.Role.Color()
	if !ok {
		res.Err = fmt.Errorf("unknown role %q", src.Role)
		return res
	}

	img, err := load(src.Path)
	if err != nil {
		res.Err = fmt.Errorf("decode: %w", err)
		return res
	}

	boxes, err := b.Detector.Detect(img)
	if err != nil {
		res.Err = fmt.Errorf("detect: %w", err)
		return res
	}
	if len(boxes) == 0 {
		res.Err = ErrNoFace
		return res
	}

	descriptors, err := b.Encoder.Encode(img, boxes)
	if err != nil {
		res.Err = fmt.Errorf("encode: %w", err)
		return res
	}
	if len(descriptors) == 0 {
		res.Err = ErrNoFace
		return res
	}

	res.Face = &types.EnrolledFace{
		Descriptor:  descriptors[0],
		DisplayName: DisplayName(src.Path),
		Role:        src.Role,
		RoleColor:   color,
		Source:      src.Path,
	}
	return res
}

// Faults returns only the failed results.
func Faults(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
