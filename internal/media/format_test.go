package media_test

import (
	"bytes"
	"image"
	"image/png"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetvault/service/internal/media"
	"github.com/assetvault/service/internal/testsupport"
)

var webpHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 \x18\x00\x00\x00")

func TestNormalize(t *testing.T) {
	tests := map[string]media.Format{
		"png":   media.PNG,
		"PNG":   media.PNG,
		"jpg":   media.JPG,
		"JPEG":  media.JPG,
		"jpeg":  media.JPG,
		" webp": media.WEBP,
	}
	for in, want := range tests {
		got, ok := media.Normalize(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "gif", "pdf", "bin", "image/png"} {
		_, ok := media.Normalize(in)
		assert.False(t, ok, in)
	}
}

func TestResolveByExtension(t *testing.T) {
	tests := map[string]media.Format{
		"a.PNG":            media.PNG,
		"a.JPEG":           media.JPG,
		"a.jpg":            media.JPG,
		"a.WEBP":           media.WEBP,
		"dir/photo.v2.png": media.PNG,
	}
	for name, want := range tests {
		got, ok := media.Resolve(name, nil)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestResolveExtensionWinsOverContent(t *testing.T) {
	got, ok := media.Resolve("mislabelled.png", testsupport.JPEG(t, 4, 4))
	require.True(t, ok)
	assert.Equal(t, media.PNG, got)
}

func TestResolveByContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want media.Format
	}{
		{"png", testsupport.PNG(t, 3, 2), media.PNG},
		{"jpeg", testsupport.JPEG(t, 3, 2), media.JPG},
		{"webp", webpHeader, media.WEBP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := media.Resolve("upload", tt.data)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			got, ok = media.Resolve("upload.dat", tt.data)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNone(t *testing.T) {
	_, ok := media.Resolve("upload", nil)
	assert.False(t, ok)

	_, ok = media.Resolve("contract.pdf", testsupport.PDF)
	assert.False(t, ok)

	_, ok = media.Resolve("notes", []byte("plain text, nothing to see"))
	assert.False(t, ok)

	f, _ := media.Resolve("contract.pdf", testsupport.PDF)
	assert.Equal(t, media.Binary, f.OrBinary())
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", media.Extension("a.PNG"))
	assert.Equal(t, "gz", media.Extension("archive.tar.gz"))
	assert.Equal(t, "", media.Extension("README"))
	assert.Equal(t, "", media.Extension(".env"))
	assert.Equal(t, "", media.Extension("trailing."))
	assert.Equal(t, "jpg", media.Extension(`C:\Users\me\photo.JPG`))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/webp", media.ContentType(media.WEBP, "photo.png"))
	assert.Equal(t, "image/jpeg", media.ContentType(media.JPG, ""))
	assert.Equal(t, "application/pdf", media.ContentType("", "contract.pdf"))
	assert.Equal(t, "application/octet-stream", media.ContentType("", "blob"))
	assert.Equal(t, "application/octet-stream", media.ContentType("", "blob.zzzunknown"))
}

func TestDimensions(t *testing.T) {
	w, h, ok := media.Dimensions(testsupport.PNG(t, 40, 30))
	require.True(t, ok)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)

	w, h, ok = media.Dimensions(testsupport.JPEG(t, 16, 9))
	require.True(t, ok)
	assert.Equal(t, 16, w)
	assert.Equal(t, 9, h)

	_, _, ok = media.Dimensions(testsupport.PDF)
	assert.False(t, ok)

	_, _, ok = media.Dimensions(nil)
	assert.False(t, ok)
}

func TestDimensionsReadsHeaderOnly(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 6000, 6000))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	w, h, ok := media.Dimensions(data)
	runtime.ReadMemStats(&after)

	require.True(t, ok)
	assert.Equal(t, 6000, w)
	assert.Equal(t, 6000, h)
	allocated := after.TotalAlloc - before.TotalAlloc
	assert.Less(t, allocated, uint64(len(data)+1<<20), "decoding %d bytes allocated %d", len(data), allocated)
}
