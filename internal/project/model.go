package project

import (
	"strings"
	"time"

	"portfolio-api/internal/web"
)

const (
	maxTitleBytes       = 150
	maxSummaryBytes     = 300
	maxDescriptionBytes = 5000
	maxTags             = 12
	maxTagBytes         = 32
)

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	RepoURL     string    `json:"repo_url"`
	LiveURL     string    `json:"live_url"`
	Tags        []string  `json:"tags"`
	Featured    bool      `json:"featured"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Input struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	RepoURL     string   `json:"repo_url"`
	LiveURL     string   `json:"live_url"`
	Tags        []string `json:"tags"`
	Featured    bool     `json:"featured"`
	SortOrder   int      `json:"sort_order"`
}

// Normalize trims the input in place and returns a web.InputError describing the first problem.
func (in *Input) Normalize() error {
	if err := web.CheckText("title", &in.Title, maxTitleBytes, true); err != nil {
		return err
	}
	if err := web.CheckText("summary", &in.Summary, maxSummaryBytes, false); err != nil {
		return err
	}
	if err := web.CheckText("description", &in.Description, maxDescriptionBytes, false); err != nil {
		return err
	}

	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.RepoURL = strings.TrimSpace(in.RepoURL)
	in.LiveURL = strings.TrimSpace(in.LiveURL)
	links := []struct{ field, value string }{
		{"image_url", in.ImageURL},
		{"repo_url", in.RepoURL},
		{"live_url", in.LiveURL},
	}
	for _, link := range links {
		if err := web.CheckLink(link.field, link.value, false); err != nil {
			return err
		}
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return err
	}
	in.Tags = tags

	if in.SortOrder < 0 {
		return web.Invalid("sort_order must be >= 0")
	}
	return nil
}

func normalizeTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if len(tag) > maxTagBytes {
			return nil, web.Invalid("tag %q is too long", tag)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, web.Invalid("at most %d tags are allowed", maxTags)
	}
	return tags, nil
}
