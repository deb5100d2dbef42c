package hostutils

import (
	"fmt"
	"io"
	"log/slog"
	"net"

	"go.uber.org/atomic"
)

// Proxy bridges connections accepted on a listener to a dial target, one
// goroutine pair per connection. The helper runs two of these: the privval
// proxy (vsock listener to the validator's endpoint) and the KMS proxy
// (vsock listener to the regional KMS endpoint).
type Proxy struct {
	name   string
	dial   func() (net.Conn, error)
	log    *slog.Logger
	active atomic.Int64
	total  atomic.Int64
}

// NewProxy builds a proxy bridging to the given target. Network is "tcp" or
// "unix".
func NewProxy(name, network, addr string, log *slog.Logger) *Proxy {
	return &Proxy{
		name: name,
		dial: func() (net.Conn, error) { return net.Dial(network, addr) },
		log:  log,
	}
}

// NewProxyWithDialer builds a proxy with a custom dialer, used by tests.
func NewProxyWithDialer(name string, dial func() (net.Conn, error), log *slog.Logger) *Proxy {
	return &Proxy{name: name, dial: dial, log: log}
}

// Serve accepts and bridges connections until the listener closes.
func (p *Proxy) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return fmt.Errorf("%s proxy accept: %w", p.name, err)
		}
		go p.bridge(conn)
	}
}

// ActiveConnections reports the number of bridges currently open.
func (p *Proxy) ActiveConnections() int64 {
	return p.active.Load()
}

// TotalConnections reports the number of bridges opened since start.
func (p *Proxy) TotalConnections() int64 {
	return p.total.Load()
}

func (p *Proxy) bridge(conn net.Conn) {
	defer conn.Close()

	target, err := p.dial()
	if err != nil {
		p.log.Error("proxy target unreachable", slog.String("proxy", p.name), "err", err)
		return
	}
	defer target.Close()

	p.total.Inc()
	p.active.Inc()
	defer p.active.Dec()
	p.log.Debug("proxy connection opened", slog.String("proxy", p.name))

	done := make(chan struct{}, 2)
	pipe := func(dst, src net.Conn) {
		_, _ = io.Copy(dst, src)
		// Half-close is not expressible on every conn type; tearing the
		// bridge down on the first EOF matches how both endpoints use it.
		dst.Close()
		src.Close()
		done <- struct{}{}
	}
	go pipe(target, conn)
	go pipe(conn, target)
	<-done
	<-done

	p.log.Debug("proxy connection closed", slog.String("proxy", p.name))
}
