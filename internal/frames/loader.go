// Package frames turns a directory of image files into a motion.Sequence.
//
// Files are read in lexical order, decoded (PNG and JPEG), converted to 8-bit
// luma with ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B) and stored as
// float64 intensities in [0, 255]. An optional Region crops every frame
// before conversion.
//
// The Cache type is safe for concurrent use. Loaded sequences are shared
// between callers and must not be modified.
package frames

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ironsheep/motion-tools-mcp/internal/motion"
)

// ErrNoFrames is returned when a directory holds no supported image files.
var ErrNoFrames = errors.New("no frames found")

// ErrSizeMismatch is returned when frames in one directory differ in size.
var ErrSizeMismatch = errors.New("frame size mismatch")

// extensions lists the file types picked up from a frame directory.
var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Loaded is a decoded frame directory.
type Loaded struct {
	Dir    string
	Files  []string
	Region *Region
	Frames motion.Sequence
}

// Info summarises a loaded sequence.
type Info struct {
	Dir         string   `json:"dir"`
	FrameCount  int      `json:"frame_count"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	TargetIndex int      `json:"target_index"`
	Files       []string `json:"files"`
}

// Info returns the summary used by tool responses and logs.
func (l *Loaded) Info() *Info {
	names := make([]string, len(l.Files))
	for i, f := range l.Files {
		names[i] = filepath.Base(f)
	}
	return &Info{
		Dir:         l.Dir,
		FrameCount:  len(l.Frames),
		Width:       l.Frames.Width(),
		Height:      l.Frames.Height(),
		TargetIndex: l.Frames.MiddleIndex(),
		Files:       names,
	}
}

// Cache provides thread-safe caching of decoded frame directories.
//
// Sequences are keyed by directory and region. Once loaded, later Load calls
// with the same key return the cached sequence without disk I/O. Entries stay
// in memory until Evict.
type Cache struct {
	mu   sync.RWMutex
	seqs map[string]*Loaded
	log  zerolog.Logger
}

// NewCache creates an empty cache that logs loads to log.
func NewCache(log zerolog.Logger) *Cache {
	return &Cache{
		seqs: make(map[string]*Loaded),
		log:  log,
	}
}

func cacheKey(dir string, region *Region) string {
	if region == nil {
		return dir
	}
	return dir + "#" + region.String()
}

// Load returns the sequence for dir, decoding it on first use.
//
// Parameters:
//   - dir: directory holding one image per frame
//   - region: optional crop applied to every frame; nil keeps full frames
//
// Errors:
//   - the directory cannot be read
//   - it contains no .png/.jpg/.jpeg files (ErrNoFrames)
//   - a file cannot be decoded
//   - the region lies outside the frame bounds
//   - frames differ in size (ErrSizeMismatch)
func (c *Cache) Load(dir string, region *Region) (*Loaded, error) {
	key := cacheKey(dir, region)

	c.mu.RLock()
	if l, ok := c.seqs[key]; ok {
		c.mu.RUnlock()
		return l, nil
	}
	c.mu.RUnlock()

	l, err := LoadDir(dir, region)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("dir", dir).
		Int("frames", len(l.Frames)).
		Int("width", l.Frames.Width()).
		Int("height", l.Frames.Height()).
		Msg("loaded frame sequence")

	c.mu.Lock()
	c.seqs[key] = l
	c.mu.Unlock()

	return l, nil
}

// Evict drops every cached entry for dir, whatever its region.
func (c *Cache) Evict(dir string) {
	c.mu.Lock()
	for key, l := range c.seqs {
		if l.Dir == dir {
			delete(c.seqs, key)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seqs)
}

// ListFiles returns the frame files in dir in lexical order.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read frame directory %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoFrames, "%s", dir)
	}
	return files, nil
}

// LoadDir decodes every frame in dir without caching.
func LoadDir(dir string, region *Region) (*Loaded, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	seq := make(motion.Sequence, len(files))
	for i, path := range files {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, errors.Wrapf(err, "decode frame %s", filepath.Base(path))
		}
		if region != nil {
			if img, err = region.Crop(img); err != nil {
				return nil, errors.Wrapf(err, "crop frame %s", filepath.Base(path))
			}
		}

		f := ToFrame(img)
		if i > 0 && (f.Width != seq[0].Width || f.Height != seq[0].Height) {
			return nil, errors.Wrapf(ErrSizeMismatch, "%s is %dx%d, %s is %dx%d",
				filepath.Base(path), f.Width, f.Height, filepath.Base(files[0]), seq[0].Width, seq[0].Height)
		}
		seq[i] = f
	}

	return &Loaded{
		Dir:    dir,
		Files:  files,
		Region: region,
		Frames: seq,
	}, nil
}

// ToFrame converts any image to a luma frame with values in [0, 255].
// Alpha is ignored.
func ToFrame(img image.Image) *motion.Frame {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	f := motion.NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < f.Width; x++ {
			f.Pix[y*f.Width+x] = float64(row[x*4])
		}
	}
	return f
}

// Region is a crop rectangle; (X1,Y1) is inclusive and (X2,Y2) exclusive.
type Region struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Validate checks the region is non-empty and, when bounds is non-empty,
// that it lies inside bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return errors.Errorf("invalid region %s: x1 must be < x2, y1 must be < y2", r)
	}
	if bounds.Empty() {
		return nil
	}
	if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
		return errors.Errorf("region %s outside image bounds (%d,%d)-(%d,%d)",
			r, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}

// Crop returns the part of img inside the region.
func (r Region) Crop(img image.Image) (image.Image, error) {
	if err := r.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	return imaging.Crop(img, r.Rect()), nil
}
