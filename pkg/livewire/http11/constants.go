// Package http11 implements the HTTP/1.x request-processing core: zero-copy
// parsing of pipelined requests out of a single connection buffer, lazy typed
// header accessors, the cooperative read-loop state machine, body admission
// and the prefix-dispatch pipeline.
package http11

import "github.com/yourusername/livewire/pkg/livewire/bytesutil"

// HTTP method IDs for O(1) switching. Only the methods the engine serves are
// represented; anything else on the wire answers 405.
const (
	MethodUnknown uint8 = 0
	MethodGET     uint8 = 1
	MethodHEAD    uint8 = 2
	MethodPOST    uint8 = 3
	MethodOPTIONS uint8 = 4
	MethodDELETE  uint8 = 5
)

// Method strings for zero-allocation access.
const (
	methodGETString     = "GET"
	methodHEADString    = "HEAD"
	methodPOSTString    = "POST"
	methodOPTIONSString = "OPTIONS"
	methodDELETEString  = "DELETE"
)

// MethodString returns the string representation of a method ID.
//
// Allocation behavior: 0 allocs/op
func MethodString(id uint8) string {
	switch id {
	case MethodGET:
		return methodGETString
	case MethodHEAD:
		return methodHEADString
	case MethodPOST:
		return methodPOSTString
	case MethodOPTIONS:
		return methodOPTIONSString
	case MethodDELETE:
		return methodDELETEString
	default:
		return ""
	}
}

// First-4-byte tags for the request-line method switch. "GET " includes the
// separating space so the tag alone identifies the method.
var (
	tagMethodGET     = bytesutil.MakeTag4("GET ")
	tagMethodHEAD    = bytesutil.MakeTag4("HEAD")
	tagMethodPOST    = bytesutil.MakeTag4("POST")
	tagMethodOPTIONS = bytesutil.MakeTag4("OPTI")
	tagMethodDELETE  = bytesutil.MakeTag4("DELE")
)

// First-4-byte tags for the interesting-header switch. Recognition is
// case-sensitive for this set; everything else is reachable through the
// case-insensitive generic lookup.
var (
	tagAccept        = bytesutil.MakeTag4("Acce")
	tagAuthorization = bytesutil.MakeTag4("Auth")
	tagConnection    = bytesutil.MakeTag4("Conn")
	tagContent       = bytesutil.MakeTag4("Cont")
	tagCookie        = bytesutil.MakeTag4("Cook")
	tagIfModified    = bytesutil.MakeTag4("If-M")
	tagRange         = bytesutil.MakeTag4("Rang")
)

// Protocol byte constants.
var (
	http10Bytes = []byte("HTTP/1.0")
	http11Bytes = []byte("HTTP/1.1")
	crlfBytes   = []byte("\r\n")
	colonSpace  = []byte(": ")
)

// Header names used outside the tag switch.
var (
	headerContentType     = []byte("Content-Type")
	headerContentLength   = []byte("Content-Length")
	headerConnection      = []byte("Connection")
	headerUpgrade         = []byte("Upgrade")
	headerSecWebSocketKey = []byte("Sec-WebSocket-Key")
	headerContentEncoding = []byte("Content-Encoding")
)

var contentTypeFormURLEncoded = []byte("application/x-www-form-urlencoded")

// Buffer and parse limits.
const (
	// DefaultBufferSize is the capacity of the per-connection request
	// buffer. The whole request head (line + headers) must fit.
	DefaultBufferSize = 4096

	// MaxHeaders is the number of header lines retained per request.
	MaxHeaders = 32

	// maxHeaderPositions is MaxHeaders (start,end) pairs stored flat.
	maxHeaderPositions = MaxHeaders * 2

	// MaxURILength bounds the request URI.
	MaxURILength = 4000

	// MaxRewrites caps the dispatch rewrite loop; the next attempt
	// surfaces 500.
	MaxRewrites = 4

	// BodyHeapThreshold is the body size at and above which the body is
	// spooled to a file-backed mapping instead of pooled heap memory.
	BodyHeapThreshold = 1 << 20

	// packetBudgetDivisor derives the header packet budget from the
	// expected read size: half of a typical 1480-byte MTU, pessimistic on
	// purpose so trickled headers run out of budget quickly.
	packetBudgetDivisor = 740

	// minRequestLine is the shortest accepted request line after the
	// method: "/ HTTP/1.0".
	minRequestLine = len("/ HTTP/1.0")
)

// Accept-Encoding result flags (C5). Tokens are matched in full, so "gzippy"
// does not count as gzip.
type EncodingFlags uint8

const (
	AcceptDeflate EncodingFlags = 1 << iota
	AcceptGzip
	AcceptBrotli
)

var (
	tokenDeflate   = []byte("deflate")
	tokenGzip      = []byte("gzip")
	tokenBrotli    = []byte("br")
	tokenKeepAlive = []byte("keep-alive")
	tokenClose     = []byte("close")
	tokenUpgrade   = []byte("upgrade")
	tokenWebsocket = []byte("websocket")
	rangePrefix    = []byte("bytes=")
)
