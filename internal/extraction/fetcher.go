package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a download would connect to a loopback,
// private, link-local or otherwise non-public address
var ErrBlockedAddress = errors.New("destination address is not allowed")

// FetcherOption configures a Fetcher
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	allowPrivate bool
}

// AllowPrivateNetworks lets the fetcher connect to non-public addresses.
// Only tests against local servers use it.
func AllowPrivateNetworks() FetcherOption {
	return func(o *fetcherOptions) { o.allowPrivate = true }
}

// Fetcher downloads tender notices from procurement portals with a simple
// token bucket rate limit.
type Fetcher struct {
	httpClient  *http.Client
	rateLimiter chan struct{}
	userAgent   string
	maxBytes    int64
	stop        chan struct{}
}

// NewFetcher creates a fetcher allowing requestsPerSecond requests and
// downloads up to maxBytes. Connections to non-public addresses are refused
// after DNS resolution, which also covers redirects.
func NewFetcher(requestsPerSecond int, maxBytes int64, opts ...FetcherOption) *Fetcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	var o fetcherOptions
	for _, opt := range opts {
		opt(&o)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if !o.allowPrivate {
		dialer.Control = guardAddress
	}
	rateLimiter := make(chan struct{}, requestsPerSecond)
	for i := 0; i < requestsPerSecond; i++ {
		rateLimiter <- struct{}{}
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext:     dialer.DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		rateLimiter: rateLimiter,
		userAgent:   "Mozilla/5.0 (compatible; TenderEligibility/1.0)",
		maxBytes:    maxBytes,
		stop:        make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(requestsPerSecond))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case rateLimiter <- struct{}{}:
				default:
				}
			case <-f.stop:
				return
			}
		}
	}()

	return f
}

// Fetch downloads url and returns the body with its content type
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	select {
	case <-f.rateLimiter:
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return nil, "", ErrBlockedAddress
		}
		return nil, "", fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, "", fmt.Errorf("document exceeds %d bytes", f.maxBytes)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// Close stops the rate limiter and releases idle connections
func (f *Fetcher) Close() {
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	f.httpClient.CloseIdleConnections()
}

// guardAddress runs after name resolution, once per dialed address
func guardAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return ErrBlockedAddress
	}
	ip := net.ParseIP(host)
	if ip == nil || !IsPublicIP(ip) {
		return ErrBlockedAddress
	}
	return nil
}

// IsPublicIP reports whether ip is a globally routable unicast address
func IsPublicIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	}
	// 100.64.0.0/10 carrier-grade NAT
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1]&0xc0 == 64 {
		return false
	}
	return true
}
