package persister

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/domain"
)

type fakeBlobs struct {
	uploads map[string][]byte
	fail    bool
}

func (f *fakeBlobs) Upload(_ context.Context, path string, data []byte, _ string) error {
	if f.fail {
		return errors.New("storage unavailable")
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[path] = data
	return nil
}

func (f *fakeBlobs) PublicURL(path string) string {
	return "https://cdn.example.com/" + path
}

type fakeCatalog struct {
	refs map[int64]string
	fail bool
}

func (f *fakeCatalog) SetImageReference(_ context.Context, id int64, ref string) error {
	if f.fail {
		return errors.New("catalog unavailable")
	}
	if f.refs == nil {
		f.refs = map[int64]string{}
	}
	f.refs[id] = ref
	return nil
}

func testImage() domain.ProcessedImage {
	return domain.ProcessedImage{Bytes: []byte("png-bytes"), Format: "png", Width: 800, Height: 800}
}

func TestPersistUploadsAndWritesBack(t *testing.T) {
	blobs := &fakeBlobs{}
	catalog := &fakeCatalog{}
	p := NewPersister(blobs, catalog, zap.NewNop())

	ref, err := p.Persist(context.Background(), domain.Entity{ID: 42}, testImage())
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/entities/42.png", ref)
	assert.Equal(t, []byte("png-bytes"), blobs.uploads["entities/42.png"])
	assert.Equal(t, ref, catalog.refs[42])
}

func TestPersistPathIsDeterministic(t *testing.T) {
	blobs := &fakeBlobs{}
	p := NewPersister(blobs, &fakeCatalog{}, zap.NewNop())

	_, err := p.Persist(context.Background(), domain.Entity{ID: 7}, testImage())
	require.NoError(t, err)
	_, err = p.Persist(context.Background(), domain.Entity{ID: 7}, testImage())
	require.NoError(t, err)

	assert.Len(t, blobs.uploads, 1)
}

func TestPersistCatalogFailureKeepsUpload(t *testing.T) {
	blobs := &fakeBlobs{}
	catalog := &fakeCatalog{fail: true}
	p := NewPersister(blobs, catalog, zap.NewNop())

	_, err := p.Persist(context.Background(), domain.Entity{ID: 42}, testImage())
	require.Error(t, err)

	assert.Len(t, blobs.uploads, 1)
}

func TestPersistUploadFailureSkipsCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	p := NewPersister(&fakeBlobs{fail: true}, catalog, zap.NewNop())

	_, err := p.Persist(context.Background(), domain.Entity{ID: 42}, testImage())
	require.Error(t, err)

	assert.Empty(t, catalog.refs)
}

func TestHTTPBlobStoreUpload(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	var gotAuth, gotContentType string
	httpmock.RegisterResponder(http.MethodPut, "https://store.example.com/bucket/entities/1.png",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			gotContentType = req.Header.Get("Content-Type")
			return httpmock.NewStringResponse(http.StatusOK, ""), nil
		})

	b := NewHTTPBlobStore(client, "https://store.example.com/bucket", "https://cdn.example.com", "secret")

	err := b.Upload(context.Background(), "entities/1.png", []byte("data"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "image/png", gotContentType)
	assert.Equal(t, "https://cdn.example.com/entities/1.png", b.PublicURL("entities/1.png"))
}

func TestHTTPBlobStoreUploadErrorStatus(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPut, "https://store.example.com/bucket/entities/1.png",
		httpmock.NewStringResponder(http.StatusForbidden, "denied"))

	b := NewHTTPBlobStore(client, "https://store.example.com/bucket", "https://cdn.example.com", "")

	err := b.Upload(context.Background(), "entities/1.png", []byte("data"), "image/png")
	assert.Error(t, err)
}
