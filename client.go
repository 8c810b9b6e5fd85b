package emojidb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// maxRedirects bounds the redirect chain followed by a release download.
const maxRedirects = 5

// HTTPClient is the interface for the HTTP client used to download engine binaries.
type HTTPClient interface {
	// Get sends a GET request and returns the final response after redirects.
	Get(context.Context, *url.URL) (*http.Response, error)
}

type releaseClient struct {
	client *http.Client
}

// NewHTTPClient creates the client used for release downloads.
//
// Redirects (301, 302, 307, 308) are followed up to maxRedirects hops, which
// covers the "latest" alias of release hosts pointing at an asset URL.
func NewHTTPClient() HTTPClient {
	return &releaseClient{
		client: &http.Client{CheckRedirect: limitRedirects},
	}
}

var _ HTTPClient = (*releaseClient)(nil)

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}

func (c *releaseClient) Get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "emojidb-sdk-go")
	req.Header.Set("Accept", "application/octet-stream")
	return c.client.Do(req)
}
