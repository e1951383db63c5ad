package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"hoodlink/internal/models"

	"golang.org/x/image/webp"
)

const sniffLen = 512

// Upload is one file to attach to a message.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// OpenUpload opens path and detects its content type from the file header.
// The caller closes the returned file.
func OpenUpload(path string) (*Upload, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReaderSize(f, sniffLen)
	head, _ := br.Peek(sniffLen)
	contentType, err := DetectContentType(filepath.Base(path), head)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return &Upload{Filename: filepath.Base(path), ContentType: contentType, Body: br}, f, nil
}

// DetectContentType sniffs the header bytes, falling back to the file
// extension. WebP headers are checked with the webp decoder so a truncated
// or mislabeled file is rejected before upload.
func DetectContentType(filename string, head []byte) (string, error) {
	contentType := http.DetectContentType(head)
	if contentType == "application/octet-stream" || strings.HasPrefix(contentType, "text/plain") {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			contentType = byExt
		}
	}
	if base, _, _ := strings.Cut(contentType, ";"); base == "image/webp" {
		if _, err := webp.DecodeConfig(bytes.NewReader(head)); err != nil {
			return "", fmt.Errorf("%w: invalid webp header: %v", models.ErrUploadFailed, err)
		}
		contentType = "image/webp"
	}
	return contentType, nil
}

// UploadMessageMedia uploads one attachment and returns its absolute URL and type.
func (c *Client) UploadMessageMedia(ctx context.Context, up Upload) (models.Media, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="mediaFile"; filename=%q`, up.Filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return models.Media{}, err
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return models.Media{}, fmt.Errorf("%w: %v", models.ErrUploadFailed, err)
	}
	if err := w.Close(); err != nil {
		return models.Media{}, err
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		route:       "/api/upload/message-media",
		path:        "/api/upload/message-media",
		body:        &buf,
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return models.Media{}, fmt.Errorf("%w: %s: %w", models.ErrUploadFailed, up.Filename, err)
	}

	var resp struct {
		FilePath string `json:"filePath"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.FilePath == "" {
		return models.Media{}, fmt.Errorf("%w: %s: response has no filePath", models.ErrUploadFailed, up.Filename)
	}
	return models.Media{URL: c.absoluteURL(resp.FilePath), Type: models.MediaTypeFor(contentType)}, nil
}

func (c *Client) absoluteURL(filePath string) string {
	if strings.HasPrefix(filePath, "http://") || strings.HasPrefix(filePath, "https://") {
		return filePath
	}
	if !strings.HasPrefix(filePath, "/") {
		filePath = "/" + filePath
	}
	return c.BaseURL + filePath
}
