// Package mjpeg frames JPEG images as a multipart/x-mixed-replace stream and
// reads such streams back.
package mjpeg

import "strconv"

// Boundary separates parts in the stream. JPEG data never contains this
// sequence right after a CRLF.
const Boundary = "123456789000000000000987654321"

const (
	// StreamContentType is the response content type of an MJPEG stream.
	StreamContentType = "multipart/x-mixed-replace;boundary=" + Boundary
	// BoundaryMarker precedes every part on the wire.
	BoundaryMarker = "\r\n--" + Boundary + "\r\n"
)

const (
	partPrefix = "Content-Type: image/jpeg\r\nContent-Length: "
	partSuffix = "\r\n\r\n"
)

// maxPartHeader bounds one part header; the longest int fits comfortably.
const maxPartHeader = 64

// PartHeader returns the header written before a JPEG payload of n bytes.
func PartHeader(n int) []byte {
	var buf [maxPartHeader]byte
	b := append(buf[:0], partPrefix...)
	b = strconv.AppendInt(b, int64(n), 10)
	b = append(b, partSuffix...)
	return b
}
