package api

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// ipLimiters keeps one token bucket per remote IP for the public callback
// endpoint.
type ipLimiters struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func newIPLimiters(perSec float64, burst int) *ipLimiters {
	return &ipLimiters{m: map[string]*rate.Limiter{}, r: rate.Limit(perSec), b: burst}
}

func (l *ipLimiters) allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	l.mu.Lock()
	lim, ok := l.m[host]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.m[host] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
