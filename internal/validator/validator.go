// Package validator applies the acceptance rules for candidate images: a
// cheap metadata precheck before any body download, and decoded-image checks
// after.
package validator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Reason categorizes a rejection for logging and metrics.
type Reason string

const (
	ReasonNotImage    Reason = "not_image"
	ReasonTooLarge    Reason = "too_large"
	ReasonTooSmall    Reason = "too_small"
	ReasonPlaceholder Reason = "placeholder"
	ReasonUndecodable Reason = "undecodable"
)

// RejectionError marks a candidate as unacceptable. It is recoverable: the
// caller advances to the next candidate.
type RejectionError struct {
	Reason Reason
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("candidate rejected (%s): %s", e.Reason, e.Detail)
}

func reject(reason Reason, format string, args ...any) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validator holds the configured acceptance thresholds.
type Validator struct {
	client        *http.Client
	maxBytes      int64
	minWidth      int
	minHeight     int
	maxBrightness float64
}

func New(client *http.Client, maxBytes int64, minWidth, minHeight int, maxBrightness float64) *Validator {
	return &Validator{
		client:        client,
		maxBytes:      maxBytes,
		minWidth:      minWidth,
		minHeight:     minHeight,
		maxBrightness: maxBrightness,
	}
}

// Precheck issues a metadata-only request and rejects candidates whose
// declared content type is not an image or whose declared size exceeds the
// maximum. No body is fetched.
func (v *Validator) Precheck(ctx context.Context, candidateURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidateURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("precheck %s: %w", candidateURL, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("precheck %s: %w", candidateURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return reject(ReasonNotImage, "status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return reject(ReasonNotImage, "content type %q", ct)
	}
	if resp.ContentLength > v.maxBytes {
		return reject(ReasonTooLarge, "declared %d bytes, max %d", resp.ContentLength, v.maxBytes)
	}
	return nil
}

// Download fetches the candidate body, capped at the configured maximum size.
func (v *Validator) Download(ctx context.Context, candidateURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidateURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", candidateURL, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", candidateURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", candidateURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, v.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", candidateURL, err)
	}
	if int64(len(data)) > v.maxBytes {
		return nil, reject(ReasonTooLarge, "body exceeds %d bytes", v.maxBytes)
	}
	return data, nil
}

// Validate decodes the downloaded bytes and applies the expensive rules:
// minimum dimensions and the near-uniform placeholder heuristic. Many catalog
// sources serve blank swatches instead of 404s, so an image whose mean channel
// brightness exceeds the threshold is treated as a placeholder.
func (v *Validator) Validate(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, reject(ReasonUndecodable, "%v", err)
	}

	b := img.Bounds()
	if b.Dx() < v.minWidth || b.Dy() < v.minHeight {
		return nil, reject(ReasonTooSmall, "%dx%d, minimum %dx%d", b.Dx(), b.Dy(), v.minWidth, v.minHeight)
	}

	if mean := meanBrightness(img); mean > v.maxBrightness {
		return nil, reject(ReasonPlaceholder, "mean brightness %.1f exceeds %.1f", mean, v.maxBrightness)
	}
	return img, nil
}

// meanBrightness averages the R, G and B channels across all pixels on a
// 0-255 scale.
func meanBrightness(img image.Image) float64 {
	b := img.Bounds()
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum += uint64(r>>8) + uint64(g>>8) + uint64(bl>>8)
		}
	}
	pixels := uint64(b.Dx()) * uint64(b.Dy())
	if pixels == 0 {
		return 0
	}
	return float64(sum) / float64(pixels*3)
}
