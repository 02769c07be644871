package imageref

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"smartdocs/internal/errors"
	"smartdocs/internal/model"
	"smartdocs/internal/storage"
)

var blobPattern = regexp.MustCompile(`\(blob:([^)]+)\)`)

// ExtractKey returns the blob-scheme key of a markdown image placeholder,
// e.g. "blob:http://localhost:5173/fd73..." for "![img](blob:http://localhost:5173/fd73...)".
func ExtractKey(refer string) (string, bool) {
	m := blobPattern.FindStringSubmatch(refer)
	if m == nil {
		return "", false
	}
	return "blob:" + m[1], true
}

// DecodePayload decodes a base64 image, optionally prefixed with a
// "data:<mime>;base64," header. Without a header the image is assumed to be PNG.
func DecodePayload(raw string) ([]byte, storage.ImageType, error) {
	typ := storage.DefaultImageType
	body := strings.TrimSpace(raw)

	if strings.HasPrefix(body, "data:") {
		comma := strings.IndexByte(body, ',')
		if comma < 0 {
			return nil, storage.ImageType{}, errors.ErrInvalidImagePayload
		}
		header := body[len("data:"):comma]
		body = body[comma+1:]

		mime := header
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
		if !strings.HasPrefix(strings.ToLower(mime), "image/") {
			return nil, storage.ImageType{}, errors.Validation(errors.ErrUnsupportedImage.Code,
				fmt.Sprintf("unsupported image type %q", mime))
		}
		t, ok := storage.ImageTypeForSubtype(mime[len("image/"):])
		if !ok {
			return nil, storage.ImageType{}, errors.Validation(errors.ErrUnsupportedImage.Code,
				fmt.Sprintf("unsupported image type %q", mime))
		}
		typ = t
	}

	data, err := decodeBase64(body)
	if err != nil || len(data) == 0 {
		return nil, storage.ImageType{}, errors.ErrInvalidImagePayload
	}
	return data, typ, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Validate checks every reference that carries a placeholder key and
// reports the first payload that cannot be stored.
func Validate(refs []model.ImageReference) error {
	for i, ref := range refs {
		if _, ok := ExtractKey(ref.Refer); !ok {
			continue
		}
		if _, _, err := DecodePayload(ref.ImgByte); err != nil {
			return fmt.Errorf("image reference %d: %w", i, err)
		}
	}
	return nil
}
