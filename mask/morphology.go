package mask

import (
	"image"
)

// Square-window morphology. A window of px yields a structuring element of
// size 2*px+1; min and max over a square separate into a horizontal and a
// vertical pass.

// Erode applies a square min-filter of size 2*px+1.
func Erode(m *image.Gray, px int) *image.Gray {
	if px <= 0 {
		return cloneGray(m)
	}
	return separableWindow(m, px, false)
}

// Dilate applies a square max-filter of size 2*px+1.
func Dilate(m *image.Gray, px int) *image.Gray {
	if px <= 0 {
		return cloneGray(m)
	}
	return separableWindow(m, px, true)
}

// Open erodes then dilates, removing protrusions thinner than the window —
// typically shadow or reflection slivers that segmentation lumped into the
// subject.
func Open(m *image.Gray, px int) *image.Gray {
	if px <= 0 {
		return cloneGray(m)
	}
	return Dilate(Erode(m, px), px)
}

func separableWindow(m *image.Gray, px int, max bool) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := image.NewGray(b)
	dst := image.NewGray(b)

	for y := 0; y < h; y++ {
		row := y * m.Stride
		for x := 0; x < w; x++ {
			tmp.Pix[y*tmp.Stride+x] = windowExtreme(m.Pix[row:row+w], x, px, max)
		}
	}

	col := make([]uint8, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = tmp.Pix[y*tmp.Stride+x]
		}
		for y := 0; y < h; y++ {
			dst.Pix[y*dst.Stride+x] = windowExtreme(col, y, px, max)
		}
	}
	return dst
}

func windowExtreme(line []uint8, i, px int, max bool) uint8 {
	lo := i - px
	if lo < 0 {
		lo = 0
	}
	hi := i + px
	if hi > len(line)-1 {
		hi = len(line) - 1
	}
	v := line[lo]
	for j := lo + 1; j <= hi; j++ {
		if max {
			if line[j] > v {
				v = line[j]
			}
		} else {
			if line[j] < v {
				v = line[j]
			}
		}
	}
	return v
}

func cloneGray(m *image.Gray) *image.Gray {
	out := image.NewGray(m.Bounds())
	copy(out.Pix, m.Pix)
	return out
}
