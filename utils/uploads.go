package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Upload areas, each stored in its own subdirectory of the upload root.
const (
	UploadPartImages  = "parts"
	UploadProfileImgs = "avatars"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 5 << 20

var (
	ErrImageTooLarge   = fmt.Errorf("image must be %d MB or smaller", MaxImageBytes>>20)
	ErrUnsupportedType = errors.New("image must be a JPEG, PNG or WebP file")
)

// Extensions are derived from the sniffed content, never from the client's filename.
var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// StoreImage sniffs and saves an uploaded image under root/area and returns
// its public URL.
func StoreImage(file *multipart.FileHeader, root, area string) (string, error) {
	if file.Size > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", ErrUnsupportedType
	}
	ext, ok := imageExt[http.DetectContentType(head[:n])]
	if !ok {
		return "", ErrUnsupportedType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	dir := filepath.Join(root, area)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := time.Now().Format("20060102150405") + "-" + ShortCode(6) + ext

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, MaxImageBytes)); err != nil {
		return "", err
	}
	return path.Join("/uploads", area, name), nil
}
