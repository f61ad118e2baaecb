package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// ErrNoAddress is returned when the upstream answers without an A record.
var ErrNoAddress = errors.New("no A record in answer")

// DNSMechanism queries an upstream server for A records. Each query runs in
// the background; Query reports ErrInProgress until the answer arrives.
type DNSMechanism struct {
	client *dns.Client

	mu      sync.Mutex
	server  string
	pending map[string]*lookup
}

type lookup struct {
	done chan struct{}
	addr netip.Addr
	err  error
}

// NewDNSMechanism creates a mechanism whose exchanges give up after timeout.
func NewDNSMechanism(timeout time.Duration) *DNSMechanism {
	return &DNSMechanism{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		pending: make(map[string]*lookup),
	}
}

// SetServer sets the upstream server. A bare host gets port 53.
func (m *DNSMechanism) SetServer(server string) error {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
		if _, _, err := net.SplitHostPort(server); err != nil {
			return fmt.Errorf("invalid server address: %w", err)
		}
	}
	m.mu.Lock()
	m.server = server
	m.mu.Unlock()
	return nil
}

// Query returns the answer for hostname if a previous exchange finished,
// otherwise starts one and reports ErrInProgress. IP literals answer
// immediately.
func (m *DNSMechanism) Query(_ context.Context, hostname string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(hostname); err == nil {
		return addr, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == "" {
		return netip.Addr{}, errors.New("no dns server configured")
	}

	if l, ok := m.pending[hostname]; ok {
		select {
		case <-l.done:
			delete(m.pending, hostname)
			return l.addr, l.err
		default:
			return netip.Addr{}, ErrInProgress
		}
	}

	l := &lookup{done: make(chan struct{})}
	m.pending[hostname] = l
	go m.exchange(hostname, m.server, l)
	return netip.Addr{}, ErrInProgress
}

func (m *DNSMechanism) exchange(hostname, server string, l *lookup) {
	defer close(l.done)

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), dns.TypeA)

	in, _, err := m.client.Exchange(msg, server)
	if err != nil {
		l.err = fmt.Errorf("exchange with %s: %w", server, err)
		return
	}
	if in.Rcode != dns.RcodeSuccess {
		l.err = fmt.Errorf("%s: %s", hostname, dns.RcodeToString[in.Rcode])
		return
	}
	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
			l.addr = addr
			return
		}
	}
	l.err = fmt.Errorf("%s: %w", hostname, ErrNoAddress)
}
