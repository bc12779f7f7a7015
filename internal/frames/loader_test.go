package frames

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeGrayPNG writes a width x height PNG filled with v into dir/name.
func writeGrayPNG(t *testing.T, dir, name string, width, height int, v uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestListFiles_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, dir, "frame_002.png", 4, 4, 0)
	writeGrayPNG(t, dir, "frame_000.png", 4, 4, 0)
	writeGrayPNG(t, dir, "frame_001.PNG", 4, 4, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	files, err := ListFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"frame_000.png", "frame_001.PNG", "frame_002.png"}, names)
}

func TestListFiles_Empty(t *testing.T) {
	_, err := ListFiles(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoFrames))

	_, err = ListFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for i, v := range []uint8{10, 20, 30} {
		writeGrayPNG(t, dir, []string{"a.png", "b.png", "c.png"}[i], 5, 3, v)
	}

	l, err := LoadDir(dir, nil)
	require.NoError(t, err)
	require.Len(t, l.Frames, 3)
	require.NoError(t, l.Frames.Validate())

	assert.Equal(t, 5, l.Frames.Width())
	assert.Equal(t, 3, l.Frames.Height())
	assert.Equal(t, 10.0, l.Frames[0].At(0, 0))
	assert.Equal(t, 30.0, l.Frames[2].At(4, 2))

	info := l.Info()
	assert.Equal(t, 3, info.FrameCount)
	assert.Equal(t, 1, info.TargetIndex)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, info.Files)
}

func TestLoadDir_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, dir, "0.png", 4, 4, 0)
	writeGrayPNG(t, dir, "1.png", 5, 4, 0)

	_, err := LoadDir(dir, nil)
	assert.True(t, errors.Is(err, ErrSizeMismatch), "got %v", err)
}

func TestLoadDir_Region(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, dir, "0.png", 10, 8, 50)
	writeGrayPNG(t, dir, "1.png", 10, 8, 60)

	l, err := LoadDir(dir, &Region{X1: 2, Y1: 1, X2: 6, Y2: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, l.Frames.Width())
	assert.Equal(t, 3, l.Frames.Height())
	assert.Equal(t, 60.0, l.Frames[1].At(3, 2))

	_, err = LoadDir(dir, &Region{X1: 0, Y1: 0, X2: 20, Y2: 4})
	assert.Error(t, err)
}

func TestToFrame_Luma(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(2, 0, color.NRGBA{B: 255, A: 255})

	f := ToFrame(img)
	assert.Equal(t, 76.0, f.At(0, 0))
	assert.Equal(t, 150.0, f.At(1, 0))
	assert.Equal(t, 29.0, f.At(2, 0))
}

func TestRegionValidate(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 10)
	assert.NoError(t, Region{X1: 0, Y1: 0, X2: 10, Y2: 10}.Validate(bounds))
	assert.Error(t, Region{X1: 5, Y1: 0, X2: 5, Y2: 10}.Validate(bounds))
	assert.Error(t, Region{X1: -1, Y1: 0, X2: 5, Y2: 10}.Validate(bounds))
	assert.NoError(t, Region{X1: 100, Y1: 100, X2: 200, Y2: 200}.Validate(image.Rectangle{}))
}

func TestCache_LoadAndEvict(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, dir, "0.png", 4, 4, 1)
	writeGrayPNG(t, dir, "1.png", 4, 4, 2)

	c := NewCache(zerolog.Nop())
	first, err := c.Load(dir, nil)
	require.NoError(t, err)
	second, err := c.Load(dir, nil)
	require.NoError(t, err)
	assert.Same(t, first, second, "second load should hit the cache")

	_, err = c.Load(dir, &Region{X1: 0, Y1: 0, X2: 2, Y2: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	c.Evict(dir)
	assert.Equal(t, 0, c.Len())

	again, err := c.Load(dir, nil)
	require.NoError(t, err)
	assert.NotSame(t, first, again, "evicted entry should be decoded again")
}

func TestCache_Concurrent(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, dir, "0.png", 8, 8, 1)
	writeGrayPNG(t, dir, "1.png", 8, 8, 2)

	c := NewCache(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := c.Load(dir, nil)
			assert.NoError(t, err)
			assert.Len(t, l.Frames, 2)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
