package sniffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want MediaType
	}{
		{"png", []byte("\x89PNG\r\n\x1a\n rest"), TypePNG},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, TypeJPEG},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), TypeSVG},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?>\n<svg></svg>"), TypeSVG},
		{"svg with bom", []byte("\xef\xbb\xbf  <svg></svg>"), TypeSVG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Detect(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Type)
		})
	}
}

func TestDetectUnknown(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("GIF89a"),
		[]byte("<?xml version=\"1.0\"?><note/>"),
		[]byte("plain text"),
	} {
		_, err := Detect(data)
		assert.ErrorIs(t, err, ErrUnknownType)
	}
}

func TestDetectLooksOnlyAtHead(t *testing.T) {
	data := append(bytes.Repeat([]byte(" "), 600), []byte("<svg></svg>")...)
	_, err := Detect(data)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestTypeForExtension(t *testing.T) {
	typ, ok := TypeForExtension(".JPG")
	assert.True(t, ok)
	assert.Equal(t, TypeJPEG, typ)

	_, ok = TypeForExtension(".gif")
	assert.False(t, ok)

	assert.True(t, Result{Type: TypePNG}.IsRaster())
	assert.False(t, Result{Type: TypeSVG}.IsRaster())
}
