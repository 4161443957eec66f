package intent

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type TracedClient struct {
	client *http.Client
}

func NewTracedClient() *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        2,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// Do sends req and reads the whole body, timing each phase of the
// exchange. Phases that did not happen (a reused connection skips DNS,
// TCP and TLS) stay zero. The trace hooks fire on the transport's read and
// write goroutines, so every timestamp is taken under mu.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	var mu sync.Mutex
	var m NetworkMetrics
	var getConn, dnsStart, tcpStart, tlsStart time.Time
	var gotConn, wroteHeaders, wroteRequest, ttfb time.Time
	locked := func(fn func()) {
		mu.Lock()
		fn()
		mu.Unlock()
	}

	trace := &httptrace.ClientTrace{
		GetConn: func(string) { locked(func() { getConn = time.Now() }) },
		GotConn: func(info httptrace.GotConnInfo) {
			locked(func() {
				gotConn = time.Now()
				m.ConnWait = gotConn.Sub(getConn)
				m.ConnReused = info.Reused
			})
		},
		DNSStart:          func(httptrace.DNSStartInfo) { locked(func() { dnsStart = time.Now() }) },
		DNSDone:           func(httptrace.DNSDoneInfo) { locked(func() { m.DNS = time.Since(dnsStart) }) },
		ConnectStart:      func(_, _ string) { locked(func() { tcpStart = time.Now() }) },
		ConnectDone:       func(_, _ string, _ error) { locked(func() { m.TCP = time.Since(tcpStart) }) },
		TLSHandshakeStart: func() { locked(func() { tlsStart = time.Now() }) },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { locked(func() { m.TLS = time.Since(tlsStart) }) },
		WroteHeaders: func() {
			locked(func() {
				wroteHeaders = time.Now()
				m.ReqHeaders = wroteHeaders.Sub(gotConn)
			})
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			locked(func() {
				wroteRequest = time.Now()
				m.ReqBody = wroteRequest.Sub(wroteHeaders)
			})
		},
		GotFirstResponseByte: func() {
			locked(func() {
				ttfb = time.Now()
				// an early reply can arrive before the body is written
				if !wroteRequest.IsZero() {
					m.TTFB = ttfb.Sub(wroteRequest)
				} else {
					m.TTFB = ttfb.Sub(gotConn)
				}
			})
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	if !ttfb.IsZero() {
		m.Download = time.Since(ttfb)
	}
	m.Total = time.Since(start)
	metrics := m
	mu.Unlock()

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    &metrics,
	}, nil
}

// Warm opens a connection to url ahead of the first analysis so the TLS
// handshake is not paid while the user waits. It returns the handshake
// time, or 0 when the request failed.
func (c *TracedClient) Warm(url string) time.Duration {
	var tlsStart time.Time
	var tlsDuration time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { tlsDuration = time.Since(tlsStart) },
	}

	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return tlsDuration
}
