package server

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"time"

	"github.com/yourusername/livewire/pkg/livewire/bodybuf"
	"github.com/yourusername/livewire/pkg/livewire/http11"
	"github.com/yourusername/livewire/pkg/livewire/proxyproto"
)

// connFlags is the per-connection flag bag.
type connFlags uint8

const (
	connKeepAlive connFlags = 1 << iota
	connIsUpgrade
	connSuspendedByTimer
	connResumedFromTimer
)

// Connection serves one client connection. It owns the request buffer for
// the connection's lifetime; every span handed to handlers points into it
// (or into a body buffer registered with the cleanup list). One goroutine
// per connection, no shared mutable state, no locks on the request path.
type Connection struct {
	srv  *Server
	conn net.Conn
	bw   *bufio.Writer

	// buf is the request buffer, reused across pipelined requests by
	// moving the leftover tail to offset 0.
	buf    [http11.DefaultBufferSize]byte
	filled int

	// pipelined latches that buf already holds the start of the next
	// request when the head read loop begins.
	pipelined bool

	flags    connFlags
	proxy    *proxyproto.Header
	cleanups CleanupList
}

func newConnection(srv *Server, conn net.Conn) *Connection {
	return &Connection{
		srv:  srv,
		conn: conn,
		bw:   bufio.NewWriterSize(conn, http11.DefaultBufferSize),
	}
}

// serve is the connection's request loop. It returns when the peer closes,
// keep-alive ends, an error makes the framing incoherent, or the connection
// switches to websocket mode.
func (c *Connection) serve() {
	defer func() {
		c.cleanups.Run()
		c.conn.Close()
	}()

	firstRequest := true
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.srv.cfg.KeepAliveTimeout))

		st := &http11.ReadState{
			Buf:          c.buf[:],
			Filled:       c.filled,
			PacketBudget: http11.PacketBudget(len(c.buf)),
		}
		fin := &http11.HeadFinalizer{Pipelined: c.pipelined}
		c.pipelined = false

		err := http11.ReadLoop(c.conn, st, fin, c.srv.cfg.KeepAliveTimeout)
		c.filled = st.Filled
		if err != nil {
			if status := http11.StatusOf(err); status != 0 {
				c.respondError(status)
			}
			return
		}

		start := 0
		if firstRequest && c.srv.cfg.AllowProxyProtocol {
			hdr, n, perr := proxyproto.Decode(c.buf[:c.filled])
			if perr != nil {
				c.respondError(http11.StatusBadRequest)
				return
			}
			if hdr != nil {
				c.proxy = hdr
				start = n
			}
		}
		firstRequest = false

		keepGoing := c.serveOne(start)
		c.cleanups.Run()
		if !keepGoing {
			return
		}
	}
}

// serveOne parses and dispatches the request beginning at buf[start] and
// writes its response. Returns whether the connection continues.
func (c *Connection) serveOne(start int) bool {
	req := http11.GetRequest()
	rw := http11.GetResponseWriter(c.bw)
	defer func() {
		http11.PutResponseWriter(rw)
		http11.PutRequest(req)
	}()

	req.Conn = c
	req.RemoteAddr = c.RemoteHost()
	req.SetBodyReader(c.readBody)
	if c.proxy != nil {
		req.MarkProxied()
	}

	var status int
	parseErr := http11.ParseRequest(req, c.buf[start:c.filled])
	if parseErr != nil {
		status = http11.StatusOf(parseErr)
		if status == 0 {
			return false
		}
		// A malformed request with a framed pipelined tail does not tear
		// the connection down: answer it and move on to the queued one.
		if i := bytes.Index(c.buf[start:c.filled], []byte("\r\n\r\n")); i != -1 && start+i+4 < c.filled {
			req.Helper.Next = i + 4
		}
	} else {
		status = http11.Dispatch(req, rw, c.srv.routes, c.srv.cfg.Authorizer, c.srv.encoder)
	}

	if req.IsWebSocket() {
		// The 101 went out inside the upgrade; the connection leaves
		// HTTP mode for good.
		upgradesTotal.Inc()
		countRequest(http11.StatusSwitchingProtocols)
		c.flags |= connIsUpgrade
		if h := c.srv.cfg.WebSocketHandler; h != nil {
			h(c.conn)
		}
		return false
	}

	keepAlive := parseErr == nil && req.KeepAlive()
	if req.Method == http11.MethodPOST && !req.BodyIngested() {
		// Rejected before body ingestion: unread body bytes make the
		// framing incoherent, so the connection cannot be reused.
		keepAlive = false
	}
	if keepAlive {
		c.flags |= connKeepAlive
	} else {
		c.flags &^= connKeepAlive
	}

	next := req.Helper.Next
	if next != -1 {
		next += start
	}
	if req.Method == http11.MethodPOST && !req.BodyIngested() {
		// The gate never ran; whatever follows the head is body, not
		// the next request.
		next = -1
	}
	hasTail := next >= 0 && next < c.filled

	if !rw.HeaderWritten() {
		if status != http11.StatusOK {
			rw.SendStatus(status)
		}
		c.setConnectionHeader(rw, req, keepAlive || hasTail)
	}
	if err := rw.Flush(); err != nil {
		return false
	}
	countRequest(rw.Status())

	if hasTail {
		// Pipelining: move the leftover tail to offset 0 for the next
		// request. The copy is small by construction — the head fits
		// the buffer and the body was consumed.
		c.filled = copy(c.buf[:], c.buf[next:c.filled])
		c.pipelined = true
		return true
	}
	c.filled = 0
	return keepAlive
}

// setConnectionHeader reflects the connection's fate back to the client
// where the default would mislead: close on 1.1, keep-alive on 1.0.
func (c *Connection) setConnectionHeader(rw *http11.ResponseWriter, req *http11.Request, staysOpen bool) {
	switch {
	case !staysOpen:
		rw.SetHeader([]byte("Connection"), []byte("close"))
	case req.Has(http11.FlagHTTP10) && req.KeepAlive():
		rw.SetHeader([]byte("Connection"), []byte("keep-alive"))
	}
}

// respondError sends a default response for status outside the normal
// request path (head-read failures, malformed PROXY preambles).
func (c *Connection) respondError(status int) {
	rw := http11.GetResponseWriter(c.bw)
	rw.SendStatus(status)
	rw.SetHeader([]byte("Connection"), []byte("close"))
	_ = rw.Flush()
	countRequest(status)
	http11.PutResponseWriter(rw)
}

// readBody is the dispatch pipeline's POST gate callback: it validates
// Content-Length against policy, then ingests the body — zero-copy when it
// is already buffered, otherwise into a bodybuf allocation streamed full by
// the body read loop.
func (c *Connection) readBody(req *http11.Request) error {
	h := &req.Helper
	if h.ContentLength == nil {
		return http11.ErrBadRequest
	}
	cl, err := http11.ParseContentLength(h.ContentLength)
	if err != nil {
		return err
	}
	if cl > c.srv.cfg.MaxPostDataSize {
		return http11.ErrTooLarge
	}
	if cl == 0 {
		h.Body = nil
		return nil
	}

	buffered := h.Buf[h.HeaderEnd:]
	if len(buffered) >= cl {
		// Fully buffered alongside the head: the body is a span, no
		// copy. Anything past it is the next pipelined request.
		h.Body = buffered[:cl]
		if h.HeaderEnd+cl < len(h.Buf) {
			h.Next = h.HeaderEnd + cl
		} else {
			h.Next = -1
		}
		return nil
	}

	if cl >= bodybuf.SpoolThreshold && c.srv.cfg.AllowPostTempFile {
		bodySpillsTotal.Inc()
	}
	buf, aerr := bodybuf.Alloc(cl, c.srv.cfg.AllowPostTempFile, c.cleanups.Defer)
	if aerr != nil {
		return http11.ErrInternal
	}

	n := copy(buf.Bytes(), buffered)
	st := &http11.ReadState{
		Buf:          buf.Bytes(),
		Filled:       n,
		PacketBudget: http11.PacketBudget(cl),
		Deadline:     time.Now().Add(c.srv.cfg.KeepAliveTimeout),
	}
	if err := http11.ReadLoop(c.conn, st, &http11.BodyFinalizer{Want: cl}, c.srv.cfg.KeepAliveTimeout); err != nil {
		if errors.Is(err, http11.ErrClosed) {
			return http11.ErrFatal
		}
		return err
	}

	h.Body = buf.Bytes()[:cl]
	h.Next = -1
	return nil
}

// Sleep suspends the connection's goroutine for d on the listener's timer
// wheel. The pending timer is cancelled by the cleanup list if the request
// aborts first.
func (c *Connection) Sleep(d time.Duration) {
	ch := make(chan struct{})
	timer := c.srv.wheel.Schedule(d, func() { close(ch) })
	c.cleanups.Defer(func() { timer.Cancel() })

	c.flags |= connSuspendedByTimer
	<-ch
	c.flags &^= connSuspendedByTimer
	c.flags |= connResumedFromTimer
}

// RemoteHost resolves the peer address: the PROXY source when the request
// was proxied (the literal "*unspecified*" for a LOCAL preamble), the
// socket's peer otherwise.
func (c *Connection) RemoteHost() string {
	if c.proxy != nil {
		if c.proxy.Family == proxyproto.Unspec {
			return "*unspecified*"
		}
		return c.proxy.Src.Addr().String()
	}
	addr := c.conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		return host
	}
	return addr.String()
}
