// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// PDF is a minimal payload carrying the PDF signature.
var PDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer\n%%EOF\n")

// PNG returns a solid PNG of the given size.
func PNG(t testing.TB, width, height int) []byte {
	return encode(t, width, height, imaging.PNG)
}

// JPEG returns a solid JPEG of the given size.
func JPEG(t testing.TB, width, height int) []byte {
	return encode(t, width, height, imaging.JPEG)
}

func encode(t testing.TB, width, height int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}
