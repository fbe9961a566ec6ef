package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MaxAttachmentFiles = 5
	MaxAttachmentBytes = 5 << 20
)

var allowedUploadTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// Upload is one file received from a multipart form.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// storeUploads checks every file before writing any, then stores them under
// prefix and returns the new object keys.
func storeUploads(ctx context.Context, files infra.FileStore, prefix string, uploads []Upload) ([]string, error) {
	type checked struct {
		data        []byte
		contentType string
		ext         string
	}
	ready := make([]checked, 0, len(uploads))
	for _, u := range uploads {
		if u.Size > MaxAttachmentBytes {
			return nil, fmt.Errorf("%w: %s is larger than %d MB", ErrValidation, u.Name, MaxAttachmentBytes>>20)
		}
		rc, err := u.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", u.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, MaxAttachmentBytes+1))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", u.Name, err)
		}
		if len(data) > MaxAttachmentBytes {
			return nil, fmt.Errorf("%w: %s is larger than %d MB", ErrValidation, u.Name, MaxAttachmentBytes>>20)
		}
		ct := http.DetectContentType(data)
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}
		ext, ok := allowedUploadTypes[ct]
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a JPEG, PNG or PDF file", ErrValidation, u.Name)
		}
		if orig := strings.ToLower(filepath.Ext(u.Name)); orig == ".jpeg" && ext == ".jpg" {
			ext = orig
		}
		ready = append(ready, checked{data: data, contentType: ct, ext: ext})
	}

	keys := make([]string, 0, len(ready))
	for _, f := range ready {
		key := fmt.Sprintf("%s/%s%s", strings.TrimRight(prefix, "/"), uuid.NewString(), f.ext)
		if err := files.Upload(ctx, key, bytes.NewReader(f.data), f.contentType); err != nil {
			return keys, fmt.Errorf("%w: store %s: %v", ErrUnavailable, key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeKeys(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		return []string{}
	}
	return keys
}

func encodeKeys(keys []string) datatypes.JSON {
	b, _ := json.Marshal(keys)
	return datatypes.JSON(b)
}

func publicURLs(files infra.FileStore, keys []string) []string {
	urls := make([]string, len(keys))
	for i, k := range keys {
		urls[i] = files.PublicURL(k)
	}
	return urls
}
