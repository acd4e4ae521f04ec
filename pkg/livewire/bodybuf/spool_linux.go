//go:build linux

package bodybuf

import (
	"os"

	"golang.org/x/sys/unix"
)

// spool creates an anonymous temp file of the requested size and maps it
// privately. The file is unlinked right after creation so it vanishes when
// the mapping and descriptor go away; the descriptor itself is closed once
// the mapping exists. Transparent huge pages are advised best-effort.
func spool(size int) (*Buffer, error) {
	f, err := os.CreateTemp(tempDir(), "livewire-body-*")
	if err != nil {
		return nil, ErrSpool
	}
	// From here the file is invisible; only the fd keeps it alive.
	_ = os.Remove(f.Name())

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, ErrSpool
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	f.Close()
	if err != nil {
		return nil, ErrSpool
	}
	_ = unix.Madvise(b, unix.MADV_HUGEPAGE)

	return &Buffer{
		b:       b,
		release: func() { _ = unix.Munmap(b) },
	}, nil
}
