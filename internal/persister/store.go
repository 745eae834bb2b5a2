// Package persister owns the durable side of the pipeline: the catalog store
// the entities come from and go back to, and the blob store processed images
// are uploaded to.
package persister

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/image-pipeline/internal/domain"
)

// Store handles interactions with the catalog database.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(connStr string) (*Store, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// FindMissingImages returns entities without an image reference, most popular
// first. The pipeline processes them in this order.
func (s *Store) FindMissingImages(ctx context.Context, limit int) ([]domain.Entity, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, category, brand, model, popularity
		 FROM entities
		 WHERE image_url IS NULL OR image_url = ''
		 ORDER BY popularity DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("find missing images: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.ID, &e.Category, &e.Brand, &e.Model, &e.Popularity); err != nil {
			return nil, fmt.Errorf("find missing images: scan: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find missing images: %w", err)
	}
	return entities, nil
}

// SetImageReference writes the public image reference onto the entity record.
func (s *Store) SetImageReference(ctx context.Context, entityID int64, ref string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE entities SET image_url = $1, updated_at = NOW() WHERE id = $2`,
		ref, entityID)
	if err != nil {
		return fmt.Errorf("set image reference for entity %d: %w", entityID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set image reference: entity %d not found", entityID)
	}
	return nil
}
