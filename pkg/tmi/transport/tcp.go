package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
)

// TCPDialer connects over plain TCP, or TLS when the endpoint is secure.
type TCPDialer struct {
	Proxy     *Proxy
	TLSConfig *tls.Config
}

func (d *TCPDialer) Dial(ctx context.Context, ep Endpoint) (Conn, error) {
	dial, err := netDialer(d.Proxy)
	if err != nil {
		return nil, err
	}

	conn, err := dial(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep.Addr(), err)
	}

	if ep.Secure {
		cfg := d.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		if cfg.ServerName == "" {
			cfg = cfg.Clone()
			cfg.ServerName = ep.Host
		}

		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("tls handshake %s: %w", ep.Addr(), err)
		}
		conn = tlsConn
	}

	return newTCPConn(conn), nil
}

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader

	wmu sync.Mutex
}

func newTCPConn(conn net.Conn) *tcpConn {
	return &tcpConn{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *tcpConn) ReadLine() (string, error) {
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			return line, nil
		}
	}
}

func (c *tcpConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_, err := c.conn.Write([]byte(line + "\r\n"))
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}
