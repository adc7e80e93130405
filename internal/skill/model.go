package skill

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-api/internal/web"
)

const maxNameBytes = 60

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type Skill struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	Level      int       `json:"level"`
	IconURL    string    `json:"icon_url"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
}

// Group is the public shape: a category with its skills in display order.
type Group struct {
	Category
	Skills []Skill `json:"skills"`
}

type CategoryInput struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (in *CategoryInput) Normalize() error {
	if err := web.CheckText("name", &in.Name, maxNameBytes, true); err != nil {
		return err
	}
	if in.SortOrder < 0 {
		return web.Invalid("sort_order must be >= 0")
	}
	return nil
}

type SkillInput struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	IconURL    string `json:"icon_url"`
	SortOrder  int    `json:"sort_order"`
}

func (in *SkillInput) Normalize() error {
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if _, err := uuid.Parse(in.CategoryID); err != nil {
		return web.Invalid("category_id is invalid")
	}
	if err := web.CheckText("name", &in.Name, maxNameBytes, true); err != nil {
		return err
	}
	if in.Level < 0 || in.Level > 100 {
		return web.Invalid("level must be between 0 and 100")
	}
	in.IconURL = strings.TrimSpace(in.IconURL)
	if err := web.CheckLink("icon_url", in.IconURL, false); err != nil {
		return err
	}
	if in.SortOrder < 0 {
		return web.Invalid("sort_order must be >= 0")
	}
	return nil
}
