package utils

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func formFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}

func TestStoreImageUsesSniffedType(t *testing.T) {
	root := t.TempDir()

	url, err := StoreImage(formFile(t, "charger.jpg", pngHeader), root, UploadPartImages)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/parts/"))
	assert.Equal(t, ".png", filepath.Ext(url))

	stored, err := os.ReadFile(filepath.Join(root, UploadPartImages, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestStoreImageRejectsNonImages(t *testing.T) {
	_, err := StoreImage(formFile(t, "manual.png", []byte("%PDF-1.7 not an image")), t.TempDir(), UploadProfileImgs)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := formFile(t, "big.png", pngHeader)
	big.Size = MaxImageBytes + 1
	_, err = StoreImage(big, t.TempDir(), UploadProfileImgs)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
