package http11

import (
	"bytes"

	"github.com/yourusername/livewire/pkg/livewire/bytesutil"
)

// ParseRequest parses one request head out of buf, which must hold the
// complete head (the read loop's header finalizer guarantees a \r\n\r\n is
// present). buf starts at the request's first byte and extends to the end of
// the filled region, so it may contain body bytes and further pipelined
// requests past the head.
//
// On success the request's URL, flags and helper spans are populated and
// Helper.Next points at the first byte past the head when more data is
// buffered (the POST gate advances it past the body later).
//
// Allocation behavior: 0 allocs/op
func ParseRequest(req *Request, buf []byte) error {
	req.Helper.Buf = buf
	req.Helper.Next = -1

	pathStart, err := parseMethod(req, buf)
	if err != nil {
		return err
	}

	lineEnd := bytes.IndexByte(buf[pathStart:], '\r')
	if lineEnd == -1 || pathStart+lineEnd+1 >= len(buf) || buf[pathStart+lineEnd+1] != '\n' {
		return ErrBadRequest
	}
	line := buf[pathStart : pathStart+lineEnd]
	if len(line) < minRequestLine || line[0] != '/' {
		return ErrBadRequest
	}

	// The 8 bytes before \r are the version; the byte before them must
	// be the separating space.
	version := line[len(line)-8:]
	if line[len(line)-9] != ' ' {
		return ErrBadRequest
	}
	switch {
	case bytes.Equal(version, http11Bytes):
	case bytes.Equal(version, http10Bytes):
		req.setFlag(FlagHTTP10)
	default:
		return ErrBadRequest
	}

	rawURL := line[:len(line)-9]
	if len(rawURL) > MaxURILength {
		return ErrTooLarge
	}
	if err := splitAndDecodeURL(req, rawURL); err != nil {
		return err
	}

	headerStart := pathStart + lineEnd + 2
	if headerStart > len(buf) {
		return ErrBadRequest
	}
	if err := parseHeaders(req, buf, headerStart); err != nil {
		return err
	}

	if req.Helper.HeaderEnd < len(buf) {
		req.Helper.Next = req.Helper.HeaderEnd
	}
	return nil
}

// parseMethod identifies the method from the first bytes of the request line
// and returns the offset where the path begins. An unrecognized method is
// NotAllowed, not BadRequest: the line may be perfectly well-formed HTTP.
func parseMethod(req *Request, buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, ErrBadRequest
	}
	switch bytesutil.Tag4(buf) {
	case tagMethodGET:
		req.Method = MethodGET
		return 4, nil
	case tagMethodHEAD:
		if len(buf) > 4 && buf[4] == ' ' {
			req.Method = MethodHEAD
			return 5, nil
		}
	case tagMethodPOST:
		if len(buf) > 4 && buf[4] == ' ' {
			req.Method = MethodPOST
			return 5, nil
		}
	case tagMethodOPTIONS:
		if bytes.HasPrefix(buf, []byte("OPTIONS ")) {
			req.Method = MethodOPTIONS
			return 8, nil
		}
	case tagMethodDELETE:
		if bytes.HasPrefix(buf, []byte("DELETE ")) {
			req.Method = MethodDELETE
			return 7, nil
		}
	}
	return 0, ErrNotAllowed
}

// splitAndDecodeURL splits the fragment and query off the raw URI, then
// percent-decodes the remaining path in place.
//
// The fragment is scanned backwards (fragments are short and near the end)
// and the query forwards (query strings are long); both are recorded as raw
// spans and decoded lazily at key/value split time.
func splitAndDecodeURL(req *Request, rawURL []byte) error {
	if i := bytes.LastIndexByte(rawURL, '#'); i != -1 {
		req.Helper.Fragment = rawURL[i+1:]
		rawURL = rawURL[:i]
	}
	if i := bytes.IndexByte(rawURL, '?'); i != -1 {
		req.Helper.Query = rawURL[i+1:]
		rawURL = rawURL[:i]
	}

	decoded, err := decodeInPlace(rawURL)
	if err != nil {
		return ErrBadRequest
	}
	if len(decoded) == 0 || decoded[0] != '/' {
		return ErrBadRequest
	}
	req.url = decoded
	req.originalURL = decoded
	return nil
}

// parseHeaders walks header lines starting at offset start, recording each
// line's (start, \r-position) pair and dispatching the interesting set on
// the first four bytes of the name.
func parseHeaders(req *Request, buf []byte, start int) error {
	h := &req.Helper
	pos := start

	for {
		if pos+1 >= len(buf) {
			return ErrBadRequest
		}
		if buf[pos] == '\r' {
			if buf[pos+1] != '\n' {
				return ErrBadRequest
			}
			h.HeaderEnd = pos + 2
			return nil
		}

		lineEnd := bytes.IndexByte(buf[pos:], '\r')
		if lineEnd == -1 || pos+lineEnd+1 >= len(buf) || buf[pos+lineEnd+1] != '\n' {
			return ErrBadRequest
		}
		lineEnd += pos

		if h.nHeaderPos >= maxHeaderPositions {
			return ErrTooLarge
		}
		h.headerPos[h.nHeaderPos] = int32(pos)
		h.headerPos[h.nHeaderPos+1] = int32(lineEnd)
		h.nHeaderPos += 2

		recognizeHeader(h, buf[pos:lineEnd])
		pos = lineEnd + 2
	}
}

// recognizeHeader assigns the raw value span for the interesting-header set.
// A header counts only when the exact name is followed by ": "; everything
// else stays reachable through the generic lookup alone.
func recognizeHeader(h *Helper, line []byte) {
	if len(line) < 4 {
		return
	}
	switch bytesutil.Tag4(line) {
	case tagAccept:
		h.AcceptEncoding = valueAfter(line, "Accept-Encoding")
	case tagAuthorization:
		h.Authorization = valueAfter(line, "Authorization")
	case tagConnection:
		h.Connection = valueAfter(line, "Connection")
	case tagContent:
		if v := valueAfter(line, "Content-Type"); v != nil {
			h.ContentType = v
		} else if v := valueAfter(line, "Content-Length"); v != nil {
			h.ContentLength = v
		}
	case tagCookie:
		h.Cookie = valueAfter(line, "Cookie")
	case tagIfModified:
		h.IfModifiedSince = valueAfter(line, "If-Modified-Since")
	case tagRange:
		h.Range = valueAfter(line, "Range")
	}
}

// valueAfter returns the span after "name: " when line starts with exactly
// that, nil otherwise.
func valueAfter(line []byte, name string) []byte {
	n := len(name)
	if len(line) < n+2 || string(line[:n]) != name {
		return nil
	}
	if line[n] != ':' || line[n+1] != ' ' {
		return nil
	}
	return line[n+2:]
}

// ParseContentLength parses a Content-Length value: decimal digits only,
// rejecting empty input and overflow.
func ParseContentLength(b []byte) (int, error) {
	n, rest, ok := parseOffset(b)
	if !ok || len(rest) != 0 {
		return 0, ErrBadRequest
	}
	const maxInt = int(^uint(0) >> 1)
	if n > int64(maxInt) {
		return 0, ErrTooLarge
	}
	return int(n), nil
}

// Header looks up an arbitrary header by name, case-insensitively, over the
// recorded line spans. Returns the value with surrounding whitespace trimmed,
// or nil when absent.
//
// Allocation behavior: 0 allocs/op
func (r *Request) Header(name []byte) []byte {
	h := &r.Helper
	for i := 0; i < h.nHeaderPos; i += 2 {
		line := h.Buf[h.headerPos[i]:h.headerPos[i+1]]
		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			continue
		}
		if !bytesutil.EqualFold(line[:colon], name) {
			continue
		}
		return bytesutil.TrimTrailingSpace(bytesutil.SkipSpace(line[colon+1:]))
	}
	return nil
}
