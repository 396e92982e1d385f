package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

type PoolOptions struct {
	Size    int
	Timeout time.Duration
	// Dial overrides the network dialer; tests point it at an in-memory listener.
	Dial fasthttp.DialFunc
}

type HTTPPool struct {
	clients []*fasthttp.Client
	next    atomic.Uint64
}

func NewHTTPPool(opts PoolOptions) *HTTPPool {
	if opts.Size < 1 {
		opts.Size = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
	}

	clients := make([]*fasthttp.Client, opts.Size)
	for i := range clients {
		clients[i] = &fasthttp.Client{
			Name:                "raidguard (https://github.com/raidguard, 1.0)",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         opts.Timeout,
			WriteTimeout:        opts.Timeout,
			MaxConnWaitTimeout:  opts.Timeout,
			MaxResponseBodySize: 4 * 1024 * 1024,
			// Moderation calls are not idempotent from the audit log's view.
			MaxIdemponentCallAttempts: 1,
			TLSConfig:                 tlsConfig,
			Dial:                      opts.Dial,
		}
	}

	return &HTTPPool{clients: clients}
}

// GetClient hands out clients round robin.
func (hp *HTTPPool) GetClient() *fasthttp.Client {
	i := hp.next.Add(1) - 1
	return hp.clients[i%uint64(len(hp.clients))]
}

func (hp *HTTPPool) Size() int {
	return len(hp.clients)
}

// Warmup opens a connection to the API host so the first kick of a raid does
// not pay for the TLS handshake.
func (hp *HTTPPool) Warmup(baseURL string) bool {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + "/gateway")
	req.Header.SetMethod(fasthttp.MethodGet)

	for i := 0; i < 3; i++ {
		err := hp.clients[0].DoTimeout(req, resp, 2*time.Second)
		if err == nil && resp.StatusCode() == fasthttp.StatusOK {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}
