package profile

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"portfolio-api/internal/web"
)

const maxLinks = 10

var linkKeyPattern = regexp.MustCompile(`^[a-z0-9_-]{1,24}$`)

type Profile struct {
	FullName  string            `json:"full_name"`
	Headline  string            `json:"headline"`
	Bio       string            `json:"bio"`
	AvatarURL string            `json:"avatar_url"`
	Email     string            `json:"email"`
	Location  string            `json:"location"`
	Links     map[string]string `json:"links"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Input struct {
	FullName  string            `json:"full_name"`
	Headline  string            `json:"headline"`
	Bio       string            `json:"bio"`
	AvatarURL string            `json:"avatar_url"`
	Email     string            `json:"email"`
	Location  string            `json:"location"`
	Links     map[string]string `json:"links"`
}

func (in *Input) Normalize() error {
	if err := web.CheckText("full_name", &in.FullName, 100, true); err != nil {
		return err
	}
	if err := web.CheckText("headline", &in.Headline, 150, false); err != nil {
		return err
	}
	if err := web.CheckText("bio", &in.Bio, 5000, false); err != nil {
		return err
	}
	if err := web.CheckText("location", &in.Location, 100, false); err != nil {
		return err
	}

	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := web.CheckLink("avatar_url", in.AvatarURL, false); err != nil {
		return err
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email != "" {
		parsed, err := mail.ParseAddress(in.Email)
		if err != nil || parsed.Address != in.Email {
			return web.Invalid("email format is invalid")
		}
	}

	if len(in.Links) > maxLinks {
		return web.Invalid("at most %d links are allowed", maxLinks)
	}
	links := make(map[string]string, len(in.Links))
	for key, value := range in.Links {
		key = strings.ToLower(strings.TrimSpace(key))
		if !linkKeyPattern.MatchString(key) {
			return web.Invalid("link name %q is invalid", key)
		}
		value = strings.TrimSpace(value)
		if err := web.CheckLink("links."+key, value, true); err != nil {
			return err
		}
		links[key] = value
	}
	in.Links = links

	return nil
}
