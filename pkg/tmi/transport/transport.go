package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/proxy"
)

// Conn is a line-oriented chat connection. ReadLine is called from a single
// goroutine, WriteLine may be called concurrently.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

// Dialer opens a Conn to the chat server.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Conn, error)
}

type Endpoint struct {
	Host   string
	Port   int
	Secure bool
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Proxy describes a SOCKS5 proxy.
type Proxy struct {
	Address  string
	Port     int
	Username string
	Password string
}

func (p *Proxy) enabled() bool {
	return p != nil && p.Address != "" && p.Port != 0
}

// netDialer returns the function used to open raw TCP connections, going
// through the SOCKS5 proxy when one is configured.
func netDialer(p *Proxy) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	if !p.enabled() {
		var d net.Dialer
		return d.DialContext, nil
	}

	var auth *proxy.Auth
	if p.Username != "" {
		auth = &proxy.Auth{User: p.Username, Password: p.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", p.Address, p.Port), auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
