package persister

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/domain"
)

// Catalog is the write-back side of the catalog store.
type Catalog interface {
	SetImageReference(ctx context.Context, entityID int64, ref string) error
}

// Persister uploads a processed image and records the resulting reference on
// the catalog entity.
type Persister struct {
	blobs   BlobStore
	catalog Catalog
	logger  *zap.Logger
}

func NewPersister(blobs BlobStore, catalog Catalog, logger *zap.Logger) *Persister {
	return &Persister{blobs: blobs, catalog: catalog, logger: logger}
}

// Persist uploads under a path derived from the entity identity, so retries
// overwrite rather than accumulate, then writes the public reference back to
// the catalog. A catalog failure does not roll back the upload; the orphaned
// blob is overwritten on the next attempt.
func (p *Persister) Persist(ctx context.Context, e domain.Entity, img domain.ProcessedImage) (string, error) {
	path := fmt.Sprintf("entities/%d.%s", e.ID, img.Format)

	if err := p.blobs.Upload(ctx, path, img.Bytes, "image/"+img.Format); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	ref := p.blobs.PublicURL(path)

	if err := p.catalog.SetImageReference(ctx, e.ID, ref); err != nil {
		p.logger.Error("catalog update failed after upload",
			zap.Int64("entity_id", e.ID), zap.String("ref", ref), zap.Error(err))
		return "", fmt.Errorf("catalog update: %w", err)
	}
	return ref, nil
}
