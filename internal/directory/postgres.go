// Package directory provides adapters for the platform's directory service,
// which owns user profiles. The duel core only reads from it.
package directory

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/errors"
)

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Lookup reads the player profile from the platform users table.
func (p *Postgres) Lookup(ctx context.Context, userID string) (domain.Identity, error) {
	const stmt = `
SELECT display_name, grade_level, affiliation
FROM users
WHERE user_id = $1;`

	id := domain.Identity{UserID: userID}
	err := p.db.QueryRow(ctx, stmt, userID).Scan(&id.DisplayName, &id.GradeLevel, &id.Affiliation)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user not found: %s", userID))
	}
	if err != nil {
		return domain.Identity{}, errors.Internal(err)
	}

	return id, nil
}
