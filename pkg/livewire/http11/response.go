package http11

import (
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Pre-compiled status lines for the engine's response surface.
var (
	status101Bytes = []byte("HTTP/1.1 101 Switching Protocols\r\n")
	status200Bytes = []byte("HTTP/1.1 200 OK\r\n")
	status400Bytes = []byte("HTTP/1.1 400 Bad Request\r\n")
	status401Bytes = []byte("HTTP/1.1 401 Unauthorized\r\n")
	status404Bytes = []byte("HTTP/1.1 404 Not Found\r\n")
	status405Bytes = []byte("HTTP/1.1 405 Method Not Allowed\r\n")
	status408Bytes = []byte("HTTP/1.1 408 Request Timeout\r\n")
	status413Bytes = []byte("HTTP/1.1 413 Payload Too Large\r\n")
	status500Bytes = []byte("HTTP/1.1 500 Internal Server Error\r\n")
)

// Default plain-text bodies for error responses.
var defaultBodies = map[int][]byte{
	StatusBadRequest:     []byte("bad request"),
	StatusNotAuthorized:  []byte("not authorized"),
	StatusNotFound:       []byte("not found"),
	StatusNotAllowed:     []byte("method not allowed"),
	StatusRequestTimeout: []byte("request timeout"),
	StatusTooLarge:       []byte("request too large"),
	StatusInternalError:  []byte("internal error"),
}

func getStatusLine(status int) []byte {
	switch status {
	case StatusSwitchingProtocols:
		return status101Bytes
	case StatusOK:
		return status200Bytes
	case StatusBadRequest:
		return status400Bytes
	case StatusNotAuthorized:
		return status401Bytes
	case StatusNotFound:
		return status404Bytes
	case StatusNotAllowed:
		return status405Bytes
	case StatusRequestTimeout:
		return status408Bytes
	case StatusTooLarge:
		return status413Bytes
	case StatusInternalError:
		return status500Bytes
	}
	return nil
}

// respHeaderEntry is one response header. Responses carry few headers, so an
// ordered slice beats any keyed structure.
type respHeaderEntry struct {
	name  []byte
	value []byte
}

// ResponseWriter assembles an HTTP/1.1 response. The body is staged in a
// pooled buffer so Content-Length is always exact, and nothing touches the
// wire until Flush — which is what lets the websocket upgrade and the error
// paths check whether headers are still unsent.
type ResponseWriter struct {
	w io.Writer

	status        int
	statusWritten bool
	headerWritten bool

	headers []respHeaderEntry
	body    *bytebufferpool.ByteBuffer

	bytesWritten int64
}

// NewResponseWriter creates a ResponseWriter targeting w.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	rw := &ResponseWriter{}
	rw.Reset(w)
	return rw
}

// Reset prepares the writer for a new response on w.
func (rw *ResponseWriter) Reset(w io.Writer) {
	if rw.body != nil {
		bytebufferpool.Put(rw.body)
	}
	*rw = ResponseWriter{w: w, status: StatusOK}
}

// WriteHeader sets the response status. Only the first call takes effect.
func (rw *ResponseWriter) WriteHeader(status int) {
	if rw.statusWritten {
		return
	}
	rw.status = status
	rw.statusWritten = true
}

// SetHeader sets a response header, replacing any previous value.
func (rw *ResponseWriter) SetHeader(name, value []byte) {
	for i := range rw.headers {
		if string(rw.headers[i].name) == string(name) {
			rw.headers[i].value = append([]byte(nil), value...)
			return
		}
	}
	rw.headers = append(rw.headers, respHeaderEntry{
		name:  append([]byte(nil), name...),
		value: append([]byte(nil), value...),
	})
}

// Write stages body bytes. The first write allocates the staging buffer from
// the shared pool.
func (rw *ResponseWriter) Write(data []byte) (int, error) {
	if rw.body == nil {
		rw.body = bytebufferpool.Get()
	}
	return rw.body.Write(data)
}

// WriteString stages a string body.
func (rw *ResponseWriter) WriteString(s string) (int, error) {
	if rw.body == nil {
		rw.body = bytebufferpool.Get()
	}
	return rw.body.WriteString(s)
}

// Body returns the staged body bytes, nil when nothing was written. Used by
// the compression path to re-encode in place.
func (rw *ResponseWriter) Body() []byte {
	if rw.body == nil {
		return nil
	}
	return rw.body.B
}

// ReplaceBody swaps the staged body for b (an encoded variant).
func (rw *ResponseWriter) ReplaceBody(b []byte) {
	if rw.body == nil {
		rw.body = bytebufferpool.Get()
	}
	rw.body.Reset()
	_, _ = rw.body.Write(b)
}

// Status returns the response status.
func (rw *ResponseWriter) Status() int {
	return rw.status
}

// HeaderWritten reports whether the status line and headers have hit the
// wire. Once true, the response can no longer be replaced — the websocket
// upgrade checks this precondition.
func (rw *ResponseWriter) HeaderWritten() bool {
	return rw.headerWritten
}

// SendStatus discards any staged body and responds with the default body
// for status. No-op if headers already went out.
func (rw *ResponseWriter) SendStatus(status int) {
	if rw.headerWritten {
		return
	}
	rw.status = status
	rw.statusWritten = true
	if rw.body != nil {
		rw.body.Reset()
	}
	if b, ok := defaultBodies[status]; ok {
		_, _ = rw.Write(b)
	}
}

// Flush writes the status line, headers, Content-Length and staged body to
// the wire and releases the staging buffer.
func (rw *ResponseWriter) Flush() error {
	if !rw.headerWritten {
		if err := rw.writeHeaders(); err != nil {
			return err
		}
	}

	if rw.body != nil {
		n, err := rw.w.Write(rw.body.B)
		rw.bytesWritten += int64(n)
		bytebufferpool.Put(rw.body)
		rw.body = nil
		if err != nil {
			return err
		}
	}

	if flusher, ok := rw.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

func (rw *ResponseWriter) writeHeaders() error {
	rw.headerWritten = true

	statusLine := getStatusLine(rw.status)
	if statusLine == nil {
		statusLine = status500Bytes
	}
	if _, err := rw.w.Write(statusLine); err != nil {
		return err
	}

	for _, h := range rw.headers {
		if err := rw.writeHeaderLine(h.name, h.value); err != nil {
			return err
		}
	}

	// 101 switches protocols; it has no body and no length.
	if rw.status != StatusSwitchingProtocols {
		n := 0
		if rw.body != nil {
			n = len(rw.body.B)
		}
		var scratch [20]byte
		cl := strconv.AppendInt(scratch[:0], int64(n), 10)
		if err := rw.writeHeaderLine(headerContentLength, cl); err != nil {
			return err
		}
	}

	_, err := rw.w.Write(crlfBytes)
	return err
}

func (rw *ResponseWriter) writeHeaderLine(name, value []byte) error {
	if _, err := rw.w.Write(name); err != nil {
		return err
	}
	if _, err := rw.w.Write(colonSpace); err != nil {
		return err
	}
	if _, err := rw.w.Write(value); err != nil {
		return err
	}
	_, err := rw.w.Write(crlfBytes)
	return err
}
