package mjpeg

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strconv"
	"strings"
)

// BoundaryFromContentType extracts the boundary of a multipart stream.
func BoundaryFromContentType(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("mjpeg: parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("mjpeg: unexpected media type %q", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("mjpeg: content type %q has no boundary", contentType)
	}
	return boundary, nil
}

// Reader splits an MJPEG body into JPEG images.
type Reader struct {
	mr *multipart.Reader
}

// NewReader reads parts separated by boundary from r.
func NewReader(r io.Reader, boundary string) *Reader {
	return &Reader{mr: multipart.NewReader(r, boundary)}
}

// NextFrame returns the next JPEG payload. It returns io.EOF when the stream
// ends cleanly.
func (r *Reader) NextFrame() ([]byte, error) {
	part, err := r.mr.NextPart()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	if ct := part.Header.Get("Content-Type"); ct != "" && ct != "image/jpeg" {
		return nil, fmt.Errorf("mjpeg: unexpected part type %q", ct)
	}
	if cl := part.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("mjpeg: bad content length %q", cl)
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(part, data); err != nil {
			return nil, fmt.Errorf("mjpeg: read part: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("mjpeg: read part: %w", err)
	}
	return data, nil
}
