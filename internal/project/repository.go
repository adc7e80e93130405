package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("project not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const projectColumns = `id, title, summary, description, image_url, repo_url, live_url, tags, featured, sort_order, created_at, updated_at`

func scanProject(row interface{ Scan(dest ...any) error }) (Project, error) {
	var p Project
	var tags []byte
	if err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.Description, &p.ImageURL, &p.RepoURL, &p.LiveURL, &tags, &p.Featured, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Project{}, err
	}
	p.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return Project{}, fmt.Errorf("decode project tags: %w", err)
		}
	}
	return p, nil
}

// List returns projects featured first, then by sort_order and newest.
func (r *Repository) List(ctx context.Context, featuredOnly bool) ([]Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE ($1 = FALSE OR featured = TRUE)
		ORDER BY featured DESC, sort_order ASC, created_at DESC
	`, featuredOnly)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, input Input) (Project, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Project{}, fmt.Errorf("generate uuid v7: %w", err)
	}
	tags, err := encodeTags(input.Tags)
	if err != nil {
		return Project{}, err
	}

	now := time.Now().UTC()
	p := Project{
		ID:          id.String(),
		Title:       input.Title,
		Summary:     input.Summary,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		RepoURL:     input.RepoURL,
		LiveURL:     input.LiveURL,
		Tags:        input.Tags,
		Featured:    input.Featured,
		SortOrder:   input.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, p.ID, p.Title, p.Summary, p.Description, p.ImageURL, p.RepoURL, p.LiveURL, tags, p.Featured, p.SortOrder, now)
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}

	return p, nil
}

func (r *Repository) Update(ctx context.Context, id string, input Input) (Project, error) {
	tags, err := encodeTags(input.Tags)
	if err != nil {
		return Project{}, err
	}

	p, err := scanProject(r.db.QueryRowContext(ctx, `
		UPDATE projects
		SET title = $2, summary = $3, description = $4, image_url = $5, repo_url = $6,
			live_url = $7, tags = $8, featured = $9, sort_order = $10, updated_at = $11
		WHERE id = $1
		RETURNING `+projectColumns,
		id, input.Title, input.Summary, input.Description, input.ImageURL, input.RepoURL,
		input.LiveURL, tags, input.Featured, input.SortOrder, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("update project: %w", err)
	}

	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode project tags: %w", err)
	}
	return encoded, nil
}
