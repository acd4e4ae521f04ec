package urlmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livewire/pkg/livewire/http11"
)

func noopHandler(_ *http11.Request, _ *http11.ResponseWriter, _ any) int {
	return http11.StatusOK
}

func TestLookupPrefix(t *testing.T) {
	m := New()
	root := &http11.Route{Prefix: "/", Handler: noopHandler}
	api := &http11.Route{Prefix: "/api", Handler: noopHandler}
	apiUsers := &http11.Route{Prefix: "/api/users", Handler: noopHandler}
	m.Add(root)
	m.Add(api)
	m.Add(apiUsers)

	cases := []struct {
		path string
		want *http11.Route
		n    int
	}{
		{"/", root, 1},
		{"/index.html", root, 1},
		{"/api", api, 4},
		{"/api/orders", api, 4},
		{"/api/users", apiUsers, 10},
		{"/api/users/42", apiUsers, 10},
	}
	for _, tt := range cases {
		got, n := m.LookupPrefix([]byte(tt.path))
		require.NotNil(t, got, "path %q", tt.path)
		assert.Same(t, tt.want, got, "path %q", tt.path)
		assert.Equal(t, tt.n, n, "path %q", tt.path)
	}
}

func TestLookupNoMatch(t *testing.T) {
	m := New()
	m.Add(&http11.Route{Prefix: "/api", Handler: noopHandler})

	got, n := m.LookupPrefix([]byte("/other"))
	assert.Nil(t, got)
	assert.Zero(t, n)

	got, _ = m.LookupPrefix(nil)
	assert.Nil(t, got)
}

func TestAddReplaces(t *testing.T) {
	m := New()
	first := &http11.Route{Prefix: "/x", Handler: noopHandler}
	second := &http11.Route{Prefix: "/x", Handler: noopHandler, Flags: http11.RouteAllowPOST}
	m.Add(first)
	m.Add(second)

	got, _ := m.LookupPrefix([]byte("/x"))
	assert.Same(t, second, got)
}

func TestLongestWinsOverOrder(t *testing.T) {
	m := New()
	long := &http11.Route{Prefix: "/static/assets", Handler: noopHandler}
	short := &http11.Route{Prefix: "/static", Handler: noopHandler}
	m.Add(long)
	m.Add(short)

	got, n := m.LookupPrefix([]byte("/static/assets/app.css"))
	assert.Same(t, long, got)
	assert.Equal(t, len(long.Prefix), n)
}
