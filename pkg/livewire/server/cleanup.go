package server

// CleanupList is the connection-scoped release registry: every per-request
// acquisition (body buffers, mapped files, pending timers) registers its
// release here at creation time. Run executes in LIFO order and fires on
// every exit path — request completion, error responses and connection
// teardown alike — so an aborted request leaves nothing behind.
//
// The list is goroutine-confined to its connection; no locking.
type CleanupList struct {
	fns []func()
}

// Defer registers fn to run at the next Run, after everything registered
// earlier.
func (l *CleanupList) Defer(fn func()) {
	l.fns = append(l.fns, fn)
}

// Run executes all registered cleanups newest-first and empties the list.
func (l *CleanupList) Run() {
	for i := len(l.fns) - 1; i >= 0; i-- {
		l.fns[i]()
	}
	l.fns = l.fns[:0]
}

// Len returns the number of pending cleanups.
func (l *CleanupList) Len() int {
	return len(l.fns)
}
