package shipping

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/wellnest/backend/internal/domain/shipping"
)

const maxDocumentSize = 10 << 20

// HTTPDocumentFetcher downloads carrier-hosted PDFs such as invoices and labels
type HTTPDocumentFetcher struct {
	httpClient *http.Client
}

// NewHTTPDocumentFetcher creates a fetcher. A nil client gets a default with timeout
func NewHTTPDocumentFetcher(client *http.Client) *HTTPDocumentFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultCarrierTimeout}
	}
	return &HTTPDocumentFetcher{httpClient: client}
}

// Download fetches the document at url
func (f *HTTPDocumentFetcher) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad document url: %v", shipping.ErrCarrierInvalidResponse, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case isRetryableStatus(resp.StatusCode):
		return nil, fmt.Errorf("%w: document HTTP %d", shipping.ErrCarrierUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: document HTTP %d", shipping.ErrCarrierRequestFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shipping.ErrCarrierUnavailable, err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%w: document larger than %d bytes", shipping.ErrCarrierInvalidResponse, maxDocumentSize)
	}
	return data, nil
}

var _ shipping.DocumentFetcher = (*HTTPDocumentFetcher)(nil)
