package parser

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

func glyph(b byte) byte {
	switch {
	case b < 10:
		return ' '
	case b < 50:
		return '.'
	case b < 100:
		return ':'
	case b < 150:
		return '-'
	case b < 200:
		return '='
	}
	return '#'
}

// ASCII renders a 28x28 image as 28 newline-terminated rows.
func ASCII(img []byte) string {
	var sb strings.Builder
	sb.Grow(Rows * (Cols + 1))
	for y := 0; y < Rows; y++ {
		for x := 0; x < Cols; x++ {
			sb.WriteByte(glyph(img[y*Cols+x]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteASCII renders image i to w.
func (s *ImageSet) WriteASCII(w io.Writer, i int) error {
	img, ok := s.Image(i)
	if !ok {
		return errors.Errorf("parser: image %d out of range [0,%d)", i, s.count)
	}
	_, err := io.WriteString(w, ASCII(img))
	return err
}
