// Package bodybuf allocates request-body buffers. Small bodies come from
// size-classed pools; bodies at or above SpoolThreshold go to an unlinked
// temp file mapped into memory, so large uploads never sit on the Go heap.
// Every buffer's release is registered with the caller's scoped-cleanup
// list, so teardown happens on any exit path.
package bodybuf

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// SpoolThreshold is the body size at and above which the buffer is backed by
// a file mapping instead of pooled heap memory.
const SpoolThreshold = 1 << 20

// ErrSpool indicates the temp-file path failed (directory, truncate or map).
var ErrSpool = errors.New("bodybuf: temp file spool failed")

// Buffer is one body buffer. Bytes stays valid until release, which the
// cleanup list runs at request teardown.
type Buffer struct {
	b       []byte
	release func()
}

// Bytes returns the buffer's full extent.
func (b *Buffer) Bytes() []byte {
	return b.b
}

// Size classes for the heap tier. The largest class is exactly the spool
// threshold; a buffer of that size lands here only with spooling disabled.
var classSizes = [...]int{16 << 10, 64 << 10, 256 << 10, SpoolThreshold}

var classPools [len(classSizes)]sync.Pool

func classFor(size int) int {
	for i, cs := range classSizes {
		if size <= cs {
			return i
		}
	}
	return -1
}

// Alloc returns a buffer of exactly size bytes and registers its release
// with deferCleanup. allowTempFile gates the spool tier; when the threshold
// is reached with spooling disabled, the heap tier serves anyway.
func Alloc(size int, allowTempFile bool, deferCleanup func(func())) (*Buffer, error) {
	if size >= SpoolThreshold && allowTempFile {
		buf, err := spool(size)
		if err != nil {
			return nil, err
		}
		deferCleanup(buf.release)
		return buf, nil
	}
	buf := heapAlloc(size)
	deferCleanup(buf.release)
	return buf, nil
}

func heapAlloc(size int) *Buffer {
	class := classFor(size)
	if class == -1 {
		// Oversized with spooling disabled: plain allocation, GC owns it.
		return &Buffer{b: make([]byte, size), release: func() {}}
	}

	var backing []byte
	if v := classPools[class].Get(); v != nil {
		backing = *(v.(*[]byte))
	} else {
		backing = make([]byte, classSizes[class])
	}

	buf := &Buffer{b: backing[:size]}
	buf.release = func() {
		classPools[class].Put(&backing)
	}
	return buf
}

// tempDir picks the spool directory: the first of $TMPDIR, $TMP, $TEMP that
// is an absolute path, then /tmp, then /var/tmp.
func tempDir() string {
	for _, env := range [...]string{"TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); filepath.IsAbs(dir) {
			return dir
		}
	}
	if _, err := os.Stat("/tmp"); err == nil {
		return "/tmp"
	}
	return "/var/tmp"
}
