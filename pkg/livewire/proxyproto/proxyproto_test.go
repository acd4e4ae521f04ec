package proxyproto

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

var decodeV1Tests = []struct {
	name string
	raw  string
	want *Header
	n    int
}{
	{
		name: "tcp4",
		raw:  "PROXY TCP4 1.2.3.4 5.6.7.8 1111 80\r\nGET / HTTP/1.1\r\n\r\n",
		want: &Header{
			Command: Proxy,
			Family:  INET,
			Src:     netip.MustParseAddrPort("1.2.3.4:1111"),
			Dst:     netip.MustParseAddrPort("5.6.7.8:80"),
		},
		n: 36,
	},
	{
		name: "tcp6",
		raw:  "PROXY TCP6 ::1 ::2 1111 80\r\n",
		want: &Header{
			Command: Proxy,
			Family:  INET6,
			Src:     netip.MustParseAddrPort("[::1]:1111"),
			Dst:     netip.MustParseAddrPort("[::2]:80"),
		},
		n: 28,
	},
}

func TestDecodeV1(t *testing.T) {
	for _, tt := range decodeV1Tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.n, n)
		})
	}
}

func TestDecodeV1Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"bad-proto", "PROXY UNIX 1.2.3.4 5.6.7.8 1111 80\r\n"},
		{"v6-addr-in-tcp4", "PROXY TCP4 ::1 5.6.7.8 1111 80\r\n"},
		{"bad-addr", "PROXY TCP4 1.2.3 5.6.7.8 1111 80\r\n"},
		{"port-too-big", "PROXY TCP4 1.2.3.4 5.6.7.8 65536 80\r\n"},
		{"missing-field", "PROXY TCP4 1.2.3.4 5.6.7.8 1111\r\n"},
		{"no-crlf", "PROXY TCP4 1.2.3.4 5.6.7.8 1111 80"},
		{"truncated-keyword", "PROXTCP4 1.2.3.4 5.6.7.8 1111 80\r\n"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.raw))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

var decodeV2Tests = []struct {
	name string
	raw  string
	want *Header
	n    int
}{
	{
		name: "local-command",
		raw: ("\r\n\r\n\x00\r\nQUIT\n" + // signature
			"\x20" + // version 2, local command
			"\x11" + // IPv4, TCP
			"\x00\x00"), // zero address length
		want: &Header{Command: Local, Family: Unspec},
		n:    16,
	},
	{
		name: "proxy-command-ipv4",
		raw: ("\r\n\r\n\x00\r\nQUIT\n" +
			"\x21\x11\x00\x0C" + // proxy command, IPv4/TCP, 12 address bytes
			"\x7F\x00\x00\x01" + // src 127.0.0.1
			"\x7F\x00\x00\x01" + // dst 127.0.0.1
			"\x30\x39\xDD\xD5"), // ports 12345 / 56789
		want: &Header{
			Command: Proxy,
			Family:  INET,
			Src:     netip.MustParseAddrPort("127.0.0.1:12345"),
			Dst:     netip.MustParseAddrPort("127.0.0.1:56789"),
		},
		n: 28,
	},
	{
		name: "proxy-command-ipv6",
		raw: ("\r\n\r\n\x00\r\nQUIT\n" +
			"\x21\x21\x00\x24" + // proxy command, IPv6/TCP, 36 address bytes
			"\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x01" +
			"\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02" +
			"\x30\x39\xDD\xD5"),
		want: &Header{
			Command: Proxy,
			Family:  INET6,
			Src:     netip.MustParseAddrPort("[::1]:12345"),
			Dst:     netip.MustParseAddrPort("[::2]:56789"),
		},
		n: 52,
	},
}

func TestDecodeV2(t *testing.T) {
	for _, tt := range decodeV2Tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.n, n)
		})
	}
}

func TestDecodeV2Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"bad-signature", "\r\n\r\n\x00\r\nQUIX\n\x21\x11\x00\x0C"},
		{"bad-command", "\r\n\r\n\x00\r\nQUIT\n\x31\x11\x00\x00"},
		{"bad-family", "\r\n\r\n\x00\r\nQUIT\n\x21\x12\x00\x0C\x7F\x00\x00\x01\x7F\x00\x00\x01\x30\x39\xDD\xD5"},
		{"short-address", "\r\n\r\n\x00\r\nQUIT\n\x21\x11\x00\x04\x7F\x00\x00\x01"},
		{"oversized-length", "\r\n\r\n\x00\r\nQUIT\n\x21\x11\x00\xFF"},
		{"truncated-header", "\r\n\r\n\x00\r\nQUIT\n\x21"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.raw))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeNoPreamble(t *testing.T) {
	for _, raw := range []string{"GET / HTTP/1.1\r\n\r\n", "POST /x HTTP/1.1\r\n\r\n", "GE"} {
		h, n, err := Decode([]byte(raw))
		require.NoError(t, err)
		require.Nil(t, h)
		require.Zero(t, n)
	}
}
