package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer connects over WebSocket, the transport browsers use for
// irc-ws.chat.twitch.tv.
type WebSocketDialer struct {
	Proxy            *Proxy
	HandshakeTimeout time.Duration
	// ClientID is sent as the Client-ID handshake header when set.
	ClientID string
}

func (d *WebSocketDialer) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	dial, err := netDialer(d.Proxy)
	if err != nil {
		return nil, err
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := websocket.Dialer{
		NetDialContext:   dial,
		HandshakeTimeout: timeout,
	}

	scheme := "ws"
	if ep.Secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: ep.Addr()}

	var header http.Header
	if d.ClientID != "" {
		header = http.Header{"Client-ID": []string{d.ClientID}}
	}

	ws, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn

	pending []string

	wmu sync.Mutex
}

// ReadLine returns the next line. One frame may carry several CRLF separated lines.
func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return "", err
		}

		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line != "" {
				c.pending = append(c.pending, line)
			}
		}
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *wsConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	return c.ws.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
