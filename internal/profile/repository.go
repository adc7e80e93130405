package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("profile not found")

// Repository stores the single site profile row (id = 1).
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const profileColumns = `full_name, headline, bio, avatar_url, email, location, links, updated_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (Profile, error) {
	var p Profile
	var links []byte
	if err := row.Scan(&p.FullName, &p.Headline, &p.Bio, &p.AvatarURL, &p.Email, &p.Location, &links, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	p.Links = map[string]string{}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &p.Links); err != nil {
			return Profile{}, fmt.Errorf("decode profile links: %w", err)
		}
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context) (Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profile WHERE id = 1`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

func (r *Repository) Upsert(ctx context.Context, input Input) (Profile, error) {
	links, err := json.Marshal(input.Links)
	if err != nil {
		return Profile{}, fmt.Errorf("encode profile links: %w", err)
	}

	p, err := scanProfile(r.db.QueryRowContext(ctx, `
		INSERT INTO profile (id, `+profileColumns+`)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			headline = EXCLUDED.headline,
			bio = EXCLUDED.bio,
			avatar_url = EXCLUDED.avatar_url,
			email = EXCLUDED.email,
			location = EXCLUDED.location,
			links = EXCLUDED.links,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		input.FullName, input.Headline, input.Bio, input.AvatarURL, input.Email, input.Location, links, time.Now().UTC()))
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}
