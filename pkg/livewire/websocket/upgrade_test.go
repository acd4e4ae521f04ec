package websocket

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yourusername/livewire/pkg/livewire/http11"
)

// RFC 6455 Section 1.3 sample handshake.
const sampleKey = "dGhlIHNhbXBsZSBub25jZQ=="
const sampleAccept = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

func TestComputeAcceptKey(t *testing.T) {
	if got := ComputeAcceptKey([]byte(sampleKey)); got != sampleAccept {
		t.Errorf("ComputeAcceptKey = %q, want %q", got, sampleAccept)
	}
}

func TestValidKeySyntax(t *testing.T) {
	if !validKeySyntax([]byte(sampleKey)) {
		t.Error("sample key rejected")
	}
	for _, bad := range []string{"", "notbase64!!", "YWJj"} { // YWJj decodes to 3 bytes
		if validKeySyntax([]byte(bad)) {
			t.Errorf("validKeySyntax(%q) = true, want false", bad)
		}
	}
}

func parseRequest(t *testing.T, raw string) *http11.Request {
	t.Helper()
	req := http11.GetRequest()
	t.Cleanup(func() { http11.PutRequest(req) })
	if err := http11.ParseRequest(req, []byte(raw)); err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	return req
}

func TestUpgrade(t *testing.T) {
	req := parseRequest(t, "GET /chat HTTP/1.1\r\n"+
		"Host: server.example.com\r\n"+
		"Upgrade: websocket\r\n"+
		"Connection: Upgrade\r\n"+
		"Sec-WebSocket-Key: "+sampleKey+"\r\n"+
		"Sec-WebSocket-Version: 13\r\n\r\n")

	var out bytes.Buffer
	rw := http11.NewResponseWriter(&out)

	if err := Upgrade(req, rw); err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}
	if !req.IsWebSocket() {
		t.Error("request not marked websocket")
	}

	resp := out.String()
	if !strings.HasPrefix(resp, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Errorf("status line wrong: %q", resp)
	}
	for _, want := range []string{
		"Upgrade: websocket\r\n",
		"Connection: Upgrade\r\n",
		"Sec-WebSocket-Accept: " + sampleAccept + "\r\n",
	} {
		if !strings.Contains(resp, want) {
			t.Errorf("response missing %q:\n%s", want, resp)
		}
	}
	if !strings.HasSuffix(resp, "\r\n\r\n") {
		t.Errorf("response not terminated by blank line: %q", resp)
	}
	if strings.Contains(resp, "Content-Length") {
		t.Errorf("101 must not carry Content-Length: %q", resp)
	}
}

func TestUpgradeMissingPreconditions(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{
			"no-connection-upgrade",
			"GET /chat HTTP/1.1\r\nUpgrade: websocket\r\nSec-WebSocket-Key: " + sampleKey + "\r\n\r\n",
		},
		{
			"no-upgrade-header",
			"GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nSec-WebSocket-Key: " + sampleKey + "\r\n\r\n",
		},
		{
			"missing-key",
			"GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\n",
		},
		{
			"bad-key-syntax",
			"GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: websocket\r\nSec-WebSocket-Key: not-base64!\r\n\r\n",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req := parseRequest(t, tt.raw)
			var out bytes.Buffer
			rw := http11.NewResponseWriter(&out)

			if err := Upgrade(req, rw); err != http11.ErrBadRequest {
				t.Errorf("Upgrade error = %v, want ErrBadRequest", err)
			}
			if out.Len() != 0 {
				t.Errorf("bytes written on failed upgrade: %q", out.String())
			}
			if req.IsWebSocket() {
				t.Error("failed upgrade marked request websocket")
			}
		})
	}
}

func TestUpgradeAfterHeadersSent(t *testing.T) {
	req := parseRequest(t, "GET /chat HTTP/1.1\r\n"+
		"Upgrade: websocket\r\nConnection: Upgrade\r\n"+
		"Sec-WebSocket-Key: "+sampleKey+"\r\n\r\n")

	var out bytes.Buffer
	rw := http11.NewResponseWriter(&out)
	_, _ = rw.Write([]byte("early"))
	if err := rw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if err := Upgrade(req, rw); err != http11.ErrBadRequest {
		t.Errorf("Upgrade error = %v, want ErrBadRequest", err)
	}
}
