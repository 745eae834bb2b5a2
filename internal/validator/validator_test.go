package validator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(client *http.Client) *Validator {
	return New(client, 5<<20, 600, 600, 250)
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func rejectionReason(t *testing.T, err error) Reason {
	t.Helper()
	var rej *RejectionError
	require.True(t, errors.As(err, &rej), "expected a rejection, got %v", err)
	return rej.Reason
}

func TestValidateAcceptsMinimumDimensions(t *testing.T) {
	v := newTestValidator(http.DefaultClient)
	data := pngBytes(t, 600, 600, color.RGBA{R: 120, G: 120, B: 120, A: 255})

	img, err := v.Validate(data)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
}

func TestValidateRejectsOnePixelBelowMinimum(t *testing.T) {
	v := newTestValidator(http.DefaultClient)

	for _, dims := range [][2]int{{599, 600}, {600, 599}} {
		data := pngBytes(t, dims[0], dims[1], color.RGBA{R: 120, G: 120, B: 120, A: 255})
		_, err := v.Validate(data)
		assert.Equal(t, ReasonTooSmall, rejectionReason(t, err))
	}
}

func TestValidateRejectsNearWhitePlaceholder(t *testing.T) {
	v := newTestValidator(http.DefaultClient)
	data := pngBytes(t, 600, 600, color.RGBA{R: 254, G: 254, B: 254, A: 255})

	_, err := v.Validate(data)
	assert.Equal(t, ReasonPlaceholder, rejectionReason(t, err))
}

func TestValidateAcceptsBrightButLegitimate(t *testing.T) {
	v := newTestValidator(http.DefaultClient)
	data := pngBytes(t, 600, 600, color.RGBA{R: 249, G: 249, B: 249, A: 255})

	_, err := v.Validate(data)
	assert.NoError(t, err)
}

func TestValidateRejectsUndecodableBytes(t *testing.T) {
	v := newTestValidator(http.DefaultClient)

	_, err := v.Validate([]byte("<html>not an image</html>"))
	assert.Equal(t, ReasonUndecodable, rejectionReason(t, err))
}

func TestPrecheckAcceptsImageContentType(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, "https://cdn.example.com/ok.jpg",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, "")
			resp.Header.Set("Content-Type", "image/jpeg")
			resp.ContentLength = 100_000
			return resp, nil
		})

	v := newTestValidator(client)
	assert.NoError(t, v.Precheck(context.Background(), "https://cdn.example.com/ok.jpg"))
}

func TestPrecheckRejectsNonImageContentType(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, "https://cdn.example.com/page",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, "")
			resp.Header.Set("Content-Type", "text/html")
			return resp, nil
		})

	v := newTestValidator(client)
	err := v.Precheck(context.Background(), "https://cdn.example.com/page")
	assert.Equal(t, ReasonNotImage, rejectionReason(t, err))
}

func TestPrecheckRejectsOversizedDeclaredLength(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, "https://cdn.example.com/huge.png",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, "")
			resp.Header.Set("Content-Type", "image/png")
			resp.ContentLength = 6 << 20
			return resp, nil
		})

	v := newTestValidator(client)
	err := v.Precheck(context.Background(), "https://cdn.example.com/huge.png")
	assert.Equal(t, ReasonTooLarge, rejectionReason(t, err))
}

func TestDownloadReturnsBody(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	payload := pngBytes(t, 600, 600, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	httpmock.RegisterResponder(http.MethodGet, "https://cdn.example.com/img.png",
		httpmock.NewBytesResponder(http.StatusOK, payload))

	v := newTestValidator(client)
	data, err := v.Download(context.Background(), "https://cdn.example.com/img.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}
