package chain

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

// Client is an ethclient whose HTTP transport is owned by the caller.
type Client struct {
	*ethclient.Client
	transport *http.Transport
}

// Close drops the RPC client and any idle keep-alive connections.
func (c *Client) Close() {
	c.Client.Close()
	c.transport.CloseIdleConnections()
}

// limitedTransport throttles outgoing RPC requests to a fixed rate.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// Dial connects to rpcURL with keep-alives and a 30s per-request timeout.
// rps <= 0 disables throttling.
func Dial(ctx context.Context, rpcURL string, rps float64) (*Client, error) {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}
	var rt http.RoundTripper = transport
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		rt = &limitedTransport{base: transport, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
	}
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: rt,
	}
	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		transport.CloseIdleConnections()
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}
	return &Client{Client: ethclient.NewClient(rpcClient), transport: transport}, nil
}
