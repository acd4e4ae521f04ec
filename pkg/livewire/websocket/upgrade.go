// Package websocket implements the server side of the RFC 6455 opening
// handshake over the engine's request types. Framing after the 101 is the
// caller's business: the connection leaves HTTP mode and hands the raw
// socket to the upgrade callback.
package websocket

import (
	"bytes"

	"github.com/yourusername/livewire/pkg/livewire/bytesutil"
	"github.com/yourusername/livewire/pkg/livewire/http11"
)

var (
	upgradeToken      = []byte("websocket")
	secWebSocketKey   = []byte("Sec-WebSocket-Key")
	headerUpgrade     = []byte("Upgrade")
	headerConnection  = []byte("Connection")
	headerAcceptKey   = []byte("Sec-WebSocket-Accept")
	connectionUpgrade = []byte("Upgrade")
)

// Upgrade validates the handshake preconditions, emits the 101 response and
// switches the request into websocket mode.
//
// Preconditions (any miss is ErrBadRequest → 400): response headers not yet
// sent, the Connection header carried an "upgrade" token, "Upgrade:
// websocket" present, and a syntactically valid Sec-WebSocket-Key. A write
// failure emitting the 101 is ErrInternal.
func Upgrade(req *http11.Request, rw *http11.ResponseWriter) error {
	if rw.HeaderWritten() {
		return http11.ErrBadRequest
	}

	// Force Connection parsing so the upgrade flag is populated.
	req.KeepAlive()
	if !req.Has(http11.FlagConnUpgrade) {
		return http11.ErrBadRequest
	}

	upgrade := req.Header(headerUpgrade)
	if !bytesutil.EqualFold(bytes.TrimSpace(upgrade), upgradeToken) {
		return http11.ErrBadRequest
	}

	key := bytes.TrimSpace(req.Header(secWebSocketKey))
	if len(key) == 0 || !validKeySyntax(key) {
		return http11.ErrBadRequest
	}

	accept := ComputeAcceptKey(key)

	rw.WriteHeader(http11.StatusSwitchingProtocols)
	rw.SetHeader(headerUpgrade, upgradeToken)
	rw.SetHeader(headerConnection, connectionUpgrade)
	rw.SetHeader(headerAcceptKey, []byte(accept))
	if err := rw.Flush(); err != nil {
		return http11.ErrInternal
	}

	req.MarkWebSocket()
	return nil
}
