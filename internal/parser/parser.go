// Package parser reads MNIST images and labels stored in the idx format: a
// big-endian uint32 header followed by unsigned bytes.
package parser

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	Rows      = 28
	Cols      = 28
	ImageSize = Rows * Cols
)

var (
	ErrImageGeometry = errors.New("parser: unsupported image geometry")
	ErrShortArchive  = errors.New("parser: archive shorter than its header declares")
)

// ImageSet holds count 28x28 images back to back.
type ImageSet struct {
	count  int
	pixels []byte
}

func ReadImages(path string) (*ImageSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open images")
	}
	defer f.Close()

	set, err := ParseImages(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return set, nil
}

// ParseImages reads the 16-byte header (magic, count, rows, cols) and the
// pixel data that follows. The geometry is checked before any pixels are read.
func ParseImages(r io.Reader) (*ImageSet, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(ErrShortArchive, "image header")
	}
	count, rows, cols := header[1], header[2], header[3]
	if rows != Rows || cols != Cols {
		return nil, errors.Wrapf(ErrImageGeometry, "%dx%d, want %dx%d", rows, cols, Rows, Cols)
	}

	pixels, err := readN(r, int64(count)*ImageSize)
	if err != nil {
		return nil, errors.Wrapf(err, "%d images", count)
	}
	return &ImageSet{count: int(count), pixels: pixels}, nil
}

// readN reads exactly n bytes without trusting n for the initial allocation.
func readN(r io.Reader, n int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, errors.Wrap(err, "read data")
	}
	if int64(len(buf)) != n {
		return nil, errors.Wrapf(ErrShortArchive, "got %d bytes, want %d", len(buf), n)
	}
	return buf, nil
}

func (s *ImageSet) Len() int { return s.count }

// Image returns a view of image i. The slice aliases the set and must not be
// modified. ok is false when i is out of range.
func (s *ImageSet) Image(i int) (img []byte, ok bool) {
	if i < 0 || i >= s.count {
		return nil, false
	}
	return s.pixels[i*ImageSize : (i+1)*ImageSize : (i+1)*ImageSize], true
}

// Normalize scales pixel bytes to [0,1].
func Normalize(img []byte) []float32 {
	out := make([]float32, len(img))
	for i, b := range img {
		out[i] = float32(b) / 255
	}
	return out
}

// LabelSet holds one class byte per image.
type LabelSet struct {
	labels []byte
}

func ReadLabels(path string) (*LabelSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels")
	}
	defer f.Close()

	set, err := ParseLabels(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return set, nil
}

// ParseLabels reads the 8-byte header (magic, count) and count label bytes.
func ParseLabels(r io.Reader) (*LabelSet, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(ErrShortArchive, "label header")
	}
	labels, err := readN(r, int64(header[1]))
	if err != nil {
		return nil, errors.Wrapf(err, "%d labels", header[1])
	}
	return &LabelSet{labels: labels}, nil
}

func (s *LabelSet) Len() int { return len(s.labels) }

func (s *LabelSet) Label(i int) (int, bool) {
	if i < 0 || i >= len(s.labels) {
		return 0, false
	}
	return int(s.labels[i]), true
}
