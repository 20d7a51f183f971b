package gateway

import (
	"context"
	"net/http"
)

// forwardedHeaders are the request headers downstream services act on.
var forwardedHeaders = []string{
	"Content-Type",
	"Authorization",
	"Cookie",
	"Idempotency-Key",
}

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

// ForwardRequest replays r against path on the downstream service, keeping
// its method, body, query string and the headers in forwardedHeaders.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, name := range forwardedHeaders {
		for _, value := range r.Header.Values(name) {
			req.Header.Add(name, value)
		}
	}

	return p.client.Do(req)
}
