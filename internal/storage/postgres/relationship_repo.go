package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RelationshipRepo answers the point queries the access gate issues.
type RelationshipRepo struct {
	db *sqlx.DB
}

func NewRelationshipRepo(db *sqlx.DB) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

// Exists reports whether a (viewer, owner, tier) relationship row is
// present. A missing row is a normal false, not an error.
func (r *RelationshipRepo) Exists(ctx context.Context, viewer, owner uuid.UUID, tier string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM relationships
			WHERE viewer_id = $1 AND owner_id = $2 AND tier = $3
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, viewer, owner, tier); err != nil {
		return false, fmt.Errorf("relationship exists: %w", err)
	}
	return exists, nil
}
