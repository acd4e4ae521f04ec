// Package encoding re-encodes staged response bodies with the best content
// coding the client accepts. It runs after the handler, before headers hit
// the wire, so Content-Length stays exact.
package encoding

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"

	"github.com/yourusername/livewire/pkg/livewire/http11"
)

var headerContentEncoding = []byte("Content-Encoding")

// minCompressSize is the body size below which compression is skipped: the
// coding overhead eats any savings on tiny responses.
const minCompressSize = 256

// Negotiator picks and applies a content coding. The zero value compresses
// at the default level; it is stateless and safe for concurrent use.
type Negotiator struct {
	// Level is the compression level for gzip and deflate; 0 means default.
	// Brotli always runs at its own default level.
	Level int
}

func (n *Negotiator) level() int {
	if n.Level == 0 {
		return gzip.DefaultCompression
	}
	return n.Level
}

// Encode implements http11.BodyEncoder. Preference order is brotli, gzip,
// deflate. The encoded body replaces the staged one only when it is
// actually smaller.
func (n *Negotiator) Encode(rw *http11.ResponseWriter, accepted http11.EncodingFlags) {
	body := rw.Body()
	if len(body) < minCompressSize || rw.HeaderWritten() {
		return
	}

	var name []byte
	var mk func(io.Writer) (io.WriteCloser, error)
	switch {
	case accepted&http11.AcceptBrotli != 0:
		name = []byte("br")
		mk = func(w io.Writer) (io.WriteCloser, error) {
			return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
		}
	case accepted&http11.AcceptGzip != 0:
		name = []byte("gzip")
		mk = func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, n.level())
		}
	case accepted&http11.AcceptDeflate != 0:
		name = []byte("deflate")
		mk = func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, n.level())
		}
	default:
		return
	}

	staging := bytebufferpool.Get()
	defer bytebufferpool.Put(staging)

	enc, err := mk(staging)
	if err != nil {
		return
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return
	}
	if err := enc.Close(); err != nil {
		return
	}
	if len(staging.B) >= len(body) {
		return
	}

	rw.ReplaceBody(staging.B)
	rw.SetHeader(headerContentEncoding, name)
}
