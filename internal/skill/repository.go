package skill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrSkillNotFound     = errors.New("skill not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrDuplicateSkill    = errors.New("skill already exists in category")
	ErrUnknownCategory   = errors.New("category does not exist")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListGrouped returns every category with its skills; categories without skills are kept.
func (r *Repository) ListGrouped(ctx context.Context) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.sort_order, c.created_at,
			s.id, s.name, s.level, s.icon_url, s.sort_order, s.created_at
		FROM skill_categories c
		LEFT JOIN skills s ON s.category_id = c.id
		ORDER BY c.sort_order ASC, c.name ASC, s.sort_order ASC, s.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	groups := make([]Group, 0)
	for rows.Next() {
		var c Category
		var (
			skillID, name, iconURL sql.NullString
			level, sortOrder       sql.NullInt64
			createdAt              sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt, &skillID, &name, &level, &iconURL, &sortOrder, &createdAt); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}

		if len(groups) == 0 || groups[len(groups)-1].ID != c.ID {
			groups = append(groups, Group{Category: c, Skills: []Skill{}})
		}
		if !skillID.Valid {
			continue
		}
		last := &groups[len(groups)-1]
		last.Skills = append(last.Skills, Skill{
			ID:         skillID.String,
			CategoryID: c.ID,
			Name:       name.String,
			Level:      int(level.Int64),
			IconURL:    iconURL.String,
			SortOrder:  int(sortOrder.Int64),
			CreatedAt:  createdAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}

	return groups, nil
}

func (r *Repository) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Category{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	c := Category{ID: id.String(), Name: input.Name, SortOrder: input.SortOrder, CreatedAt: time.Now().UTC()}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO skill_categories (id, name, sort_order, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.SortOrder, c.CreatedAt)
	if err != nil {
		return Category{}, categoryWriteError("insert category", err)
	}

	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id string, input CategoryInput) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, `
		UPDATE skill_categories
		SET name = $2, sort_order = $3
		WHERE id = $1
		RETURNING id, name, sort_order, created_at
	`, id, input.Name, input.SortOrder).Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, categoryWriteError("update category", err)
	}

	return c, nil
}

// DeleteCategory removes the category and, through the foreign key cascade, its skills.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM skill_categories WHERE id = $1`, id, ErrCategoryNotFound)
}

func (r *Repository) CreateSkill(ctx context.Context, input SkillInput) (Skill, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Skill{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	s := Skill{
		ID:         id.String(),
		CategoryID: input.CategoryID,
		Name:       input.Name,
		Level:      input.Level,
		IconURL:    input.IconURL,
		SortOrder:  input.SortOrder,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO skills (id, category_id, name, level, icon_url, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.CategoryID, s.Name, s.Level, s.IconURL, s.SortOrder, s.CreatedAt)
	if err != nil {
		return Skill{}, skillWriteError("insert skill", err)
	}

	return s, nil
}

func (r *Repository) UpdateSkill(ctx context.Context, id string, input SkillInput) (Skill, error) {
	var s Skill
	err := r.db.QueryRowContext(ctx, `
		UPDATE skills
		SET category_id = $2, name = $3, level = $4, icon_url = $5, sort_order = $6
		WHERE id = $1
		RETURNING id, category_id, name, level, icon_url, sort_order, created_at
	`, id, input.CategoryID, input.Name, input.Level, input.IconURL, input.SortOrder).
		Scan(&s.ID, &s.CategoryID, &s.Name, &s.Level, &s.IconURL, &s.SortOrder, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Skill{}, ErrSkillNotFound
		}
		return Skill{}, skillWriteError("update skill", err)
	}

	return s, nil
}

func (r *Repository) DeleteSkill(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM skills WHERE id = $1`, id, ErrSkillNotFound)
}

func (r *Repository) deleteByID(ctx context.Context, query, id string, notFound error) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}

	return nil
}

func categoryWriteError(action string, err error) error {
	if pgCode(err) == uniqueViolation {
		return ErrDuplicateCategory
	}
	return fmt.Errorf("%s: %w", action, err)
}

func skillWriteError(action string, err error) error {
	switch pgCode(err) {
	case uniqueViolation:
		return ErrDuplicateSkill
	case foreignKeyViolation:
		return ErrUnknownCategory
	}
	return fmt.Errorf("%s: %w", action, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
