package storage

import (
	"context"
	"path"
	"strings"
)

// ObjectStore is a single bucket of binary objects addressed by path.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, paths []string) error
}

// Image types accepted for upload, keyed by MIME subtype.
var imageTypes = map[string]ImageType{
	"png":     {Ext: "png", ContentType: "image/png"},
	"jpeg":    {Ext: "jpg", ContentType: "image/jpeg"},
	"jpg":     {Ext: "jpg", ContentType: "image/jpeg"},
	"gif":     {Ext: "gif", ContentType: "image/gif"},
	"webp":    {Ext: "webp", ContentType: "image/webp"},
	"bmp":     {Ext: "bmp", ContentType: "image/bmp"},
	"svg+xml": {Ext: "svg", ContentType: "image/svg+xml"},
}

// ImageType is a stored file extension and its content type.
type ImageType struct {
	Ext         string
	ContentType string
}

// DefaultImageType is used when a payload carries no data-URL header.
var DefaultImageType = ImageType{Ext: "png", ContentType: "image/png"}

// ImageTypeForSubtype looks up a MIME subtype such as "png" or "svg+xml".
func ImageTypeForSubtype(subtype string) (ImageType, bool) {
	t, ok := imageTypes[strings.ToLower(strings.TrimSpace(subtype))]
	return t, ok
}

// ImageTypeForContentType looks up a full content type such as "image/jpeg".
func ImageTypeForContentType(contentType string) (ImageType, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if !strings.HasPrefix(ct, "image/") {
		return ImageType{}, false
	}
	return ImageTypeForSubtype(strings.TrimPrefix(ct, "image/"))
}

// ImageExtensions lists every extension an uploaded image can carry.
func ImageExtensions() []string {
	return []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "svg"}
}

// KeyFromURL returns the last path segment of a public object URL.
func KeyFromURL(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if u == "" {
		return ""
	}
	return path.Base(u)
}
