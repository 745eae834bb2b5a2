package persister

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// BlobStore uploads processed images to durable object storage. Upload is
// idempotent under a fixed path: re-upload overwrites.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

// HTTPBlobStore talks to an object store over its REST surface.
type HTTPBlobStore struct {
	client        *http.Client
	uploadBaseURL string
	publicBaseURL string
	authToken     string
}

func NewHTTPBlobStore(client *http.Client, uploadBaseURL, publicBaseURL, authToken string) *HTTPBlobStore {
	return &HTTPBlobStore{
		client:        client,
		uploadBaseURL: strings.TrimRight(uploadBaseURL, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		authToken:     authToken,
	}
}

func (b *HTTPBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		b.uploadBaseURL+"/"+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("blob upload %s: %w", path, err)
	}
	req.Header.Set("Content-Type", contentType)
	if b.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.authToken)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("blob upload %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func (b *HTTPBlobStore) PublicURL(path string) string {
	return b.publicBaseURL + "/" + path
}
