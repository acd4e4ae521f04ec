package http11

import (
	"bytes"
	"math"
	"time"

	"github.com/yourusername/livewire/pkg/livewire/bytesutil"
)

// QueryParam returns the value of a query-string parameter. The array is
// built on first use; a query string that fails to decode discards the whole
// array, so every later lookup misses.
//
// Allocation behavior: amortized 1 alloc for the array on first call
func (r *Request) QueryParam(key []byte) ([]byte, bool) {
	if !r.latch(FlagQueryParsed) {
		r.query, _ = parseKV(r.Helper.Query, '&', true)
	}
	return kvFind(r.query, key)
}

// CookieValue returns a cookie by name. Cookie values are not
// percent-decoded; the separator is ';' with optional following space.
func (r *Request) CookieValue(key []byte) ([]byte, bool) {
	if !r.latch(FlagCookiesParsed) {
		r.cookies, _ = parseKV(r.Helper.Cookie, ';', false)
	}
	return kvFind(r.cookies, key)
}

// PostParam returns a form-body parameter. Valid only for POSTs whose
// Content-Type is application/x-www-form-urlencoded and whose body has been
// admitted by the dispatch pipeline.
func (r *Request) PostParam(key []byte) ([]byte, bool) {
	if !r.latch(FlagPostParsed) {
		if r.Method == MethodPOST && bytes.HasPrefix(r.Helper.ContentType, contentTypeFormURLEncoded) {
			r.post, _ = parseKV(r.Helper.Body, '&', true)
		}
	}
	return kvFind(r.post, key)
}

// IfModifiedSince returns the parsed If-Modified-Since date. An absent or
// unparsable header reads as not present.
func (r *Request) IfModifiedSince() (time.Time, bool) {
	if !r.latch(FlagIfModifiedParsed) {
		if v := r.Helper.IfModifiedSince; len(v) > 0 {
			if t, err := time.Parse(time.RFC1123, string(v)); err == nil {
				r.Helper.ifModifiedSince = t
			}
		}
	}
	if r.Helper.ifModifiedSince.IsZero() {
		return time.Time{}, false
	}
	return r.Helper.ifModifiedSince, true
}

// Range returns the parsed Range header. Accepted forms, after the literal
// "bytes=" prefix: "from-to", "-suffix" (last N bytes: from 0, to N) and
// "from-" (open ended: to -1). Anything else, including values past the
// signed-offset maximum, reads as not present.
func (r *Request) Range() (from, to int64, ok bool) {
	if !r.latch(FlagRangeParsed) {
		r.Helper.rangeFrom, r.Helper.rangeTo = -1, -1
		parseRange(&r.Helper)
	}
	from, to = r.Helper.rangeFrom, r.Helper.rangeTo
	return from, to, from != -1 || to != -1
}

func parseRange(h *Helper) {
	v := h.Range
	if !bytes.HasPrefix(v, rangePrefix) {
		return
	}
	v = v[len(rangePrefix):]

	if len(v) > 0 && v[0] == '-' {
		// Suffix form: last N bytes.
		n, rest, valid := parseOffset(v[1:])
		if valid && len(rest) == 0 {
			h.rangeFrom, h.rangeTo = 0, n
		}
		return
	}

	from, rest, valid := parseOffset(v)
	if !valid || len(rest) == 0 || rest[0] != '-' {
		return
	}
	rest = rest[1:]
	if len(rest) == 0 {
		h.rangeFrom, h.rangeTo = from, -1
		return
	}
	to, rest, valid := parseOffset(rest)
	if valid && len(rest) == 0 {
		h.rangeFrom, h.rangeTo = from, to
	}
}

// parseOffset reads a decimal offset, rejecting empty input and overflow
// past the signed maximum.
func parseOffset(b []byte) (int64, []byte, bool) {
	var n int64
	i := 0
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		d := int64(b[i] - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, nil, false
		}
		n = n*10 + d
	}
	if i == 0 {
		return 0, nil, false
	}
	return n, b[i:], true
}

// AcceptEncoding returns the negotiated encoding flags. Tokens are matched
// in full, so names that merely share a prefix with a coding do not count.
func (r *Request) AcceptEncoding() EncodingFlags {
	if !r.latch(FlagAcceptEncodingParsed) {
		forEachToken(r.Helper.AcceptEncoding, func(tok []byte) {
			// Tokens may carry ";q=" parameters; the coding name
			// ends at the first ';'.
			if i := bytes.IndexByte(tok, ';'); i != -1 {
				tok = bytesutil.TrimTrailingSpace(tok[:i])
			}
			switch {
			case bytesutil.EqualFold(tok, tokenDeflate):
				r.encodings |= AcceptDeflate
			case bytesutil.EqualFold(tok, tokenGzip):
				r.encodings |= AcceptGzip
			case bytesutil.EqualFold(tok, tokenBrotli):
				r.encodings |= AcceptBrotli
			}
		})
	}
	return r.encodings
}

// parseConnection derives the keep-alive decision and the upgrade flag from
// the Connection header. HTTP/1.1 keeps the connection unless "close" is
// present; HTTP/1.0 closes unless "keep-alive" is explicit. "upgrade" sets
// FlagConnUpgrade unconditionally.
func (r *Request) parseConnection() {
	if r.latch(FlagConnectionParsed) {
		return
	}
	var hasKeepAlive, hasClose bool
	forEachToken(r.Helper.Connection, func(tok []byte) {
		switch {
		case bytesutil.EqualFold(tok, tokenKeepAlive):
			hasKeepAlive = true
		case bytesutil.EqualFold(tok, tokenClose):
			hasClose = true
		case bytesutil.EqualFold(tok, tokenUpgrade):
			r.setFlag(FlagConnUpgrade)
		}
	})
	if r.Has(FlagHTTP10) {
		r.keepAlive = hasKeepAlive
	} else {
		r.keepAlive = !hasClose
	}
}

// forEachToken walks a comma-separated header value, trimming surrounding
// whitespace from each token and skipping empty ones.
func forEachToken(v []byte, fn func(tok []byte)) {
	for len(v) > 0 {
		tok := v
		if i := bytes.IndexByte(v, ','); i != -1 {
			tok = v[:i]
			v = v[i+1:]
		} else {
			v = nil
		}
		tok = bytesutil.TrimTrailingSpace(bytesutil.SkipSpace(tok))
		if len(tok) > 0 {
			fn(tok)
		}
	}
}
