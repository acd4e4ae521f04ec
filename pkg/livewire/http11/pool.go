package http11

import (
	"io"
	"sync"
)

// Request and ResponseWriter objects are pooled so the keep-alive loop runs
// allocation-free after warmup.

var requestPool = sync.Pool{
	New: func() interface{} {
		r := &Request{}
		r.Reset()
		return r
	},
}

// GetRequest returns a reset Request from the pool. The caller must return
// it with PutRequest when the request completes.
func GetRequest() *Request {
	return requestPool.Get().(*Request)
}

// PutRequest resets the request and returns it to the pool. All spans into
// connection buffers are dropped by the reset.
func PutRequest(r *Request) {
	r.Reset()
	requestPool.Put(r)
}

var responseWriterPool = sync.Pool{
	New: func() interface{} {
		return &ResponseWriter{}
	},
}

// GetResponseWriter returns a pooled ResponseWriter targeting w.
func GetResponseWriter(w io.Writer) *ResponseWriter {
	rw := responseWriterPool.Get().(*ResponseWriter)
	rw.Reset(w)
	return rw
}

// PutResponseWriter releases the writer and its staging buffer.
func PutResponseWriter(rw *ResponseWriter) {
	rw.Reset(nil)
	responseWriterPool.Put(rw)
}
