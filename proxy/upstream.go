package proxy

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/guardianbridge/guardianbridge/guard"
)

// clientPool keeps one long-lived HTTP client per upstream base URL.
// Clients are created on first use and live until shutdown.
type clientPool struct {
	mu      sync.Mutex
	clients map[string]*http.Client
}

var pool = &clientPool{clients: map[string]*http.Client{}}

func init() {
	guard.Register(pool)
}

// Client the pooled client for an upstream URL, keyed by scheme+host
func Client(upstream string) *http.Client {
	key := upstream
	if parsed, err := url.Parse(upstream); err == nil && parsed.Host != "" {
		key = parsed.Scheme + "://" + parsed.Host
	}

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if client, has := pool.clients[key]; has {
		return client
	}

	client := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxConnsPerHost:     100,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     30 * time.Second,
			// response bytes pass through verbatim, the transport must
			// not transcode them
			DisableCompression: true,
		},
	}
	pool.clients[key] = client
	return client
}

// ShutdownPool drain every pooled client's keep-alive connections
func ShutdownPool() {
	pool.Clear()
}

// Name implements guard.Cache
func (pool *clientPool) Name() string { return "proxy.clients" }

// SizeHint implements guard.Cache
func (pool *clientPool) SizeHint() int64 {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	// connection buffers dominate, estimate per client
	return int64(len(pool.clients)) * 64 * 1024
}

// Clear implements guard.Cache
func (pool *clientPool) Clear() {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	for key, client := range pool.clients {
		if transport, ok := client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
		delete(pool.clients, key)
	}
}
