package sniffer

import (
	"bytes"
	"errors"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeSVG  MediaType = "svg"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

// IsRaster reports whether the type can be decoded into pixels.
func (r Result) IsRaster() bool {
	return r.Type == TypeJPEG || r.Type == TypePNG
}

// sniffLen matches net/http.DetectContentType.
const sniffLen = 512

// Detect classifies data by its leading bytes.
func Detect(data []byte) (Result, error) {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case isSVG(head):
		return Result{Type: TypeSVG, MIME: "image/svg+xml"}, nil
	}
	return Result{}, ErrUnknownType
}

// TypeForExtension maps a lower-case file extension (with dot) to the media
// type it claims to be.
func TypeForExtension(ext string) (MediaType, bool) {
	switch strings.ToLower(ext) {
	case ".png":
		return TypePNG, true
	case ".jpg", ".jpeg":
		return TypeJPEG, true
	case ".svg":
		return TypeSVG, true
	}
	return "", false
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isSVG(head []byte) bool {
	trimmed := bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	trimmed = bytes.TrimSpace(trimmed)
	if bytes.HasPrefix(trimmed, []byte("<svg")) {
		return true
	}
	// An XML prolog or doctype must be followed by an svg root in the head.
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<!DOCTYPE")) {
		return bytes.Contains(bytes.ToLower(trimmed), []byte("<svg"))
	}
	return false
}
