package contact

import (
	"net/mail"
	"strings"
	"time"

	"portfolio-api/internal/web"
)

const (
	maxNameBytes    = 100
	maxEmailBytes   = 254
	maxSubjectBytes = 150
	maxBodyBytes    = 5000
)

type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Website is a honeypot: real visitors never see the field, bots tend to fill it.
	Website string `json:"website"`
}

func (in *Input) Normalize() error {
	if err := web.CheckText("name", &in.Name, maxNameBytes, true); err != nil {
		return err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" {
		return web.Invalid("email is required")
	}
	parsed, err := mail.ParseAddress(in.Email)
	if len(in.Email) > maxEmailBytes || err != nil || parsed.Address != in.Email {
		return web.Invalid("email format is invalid")
	}
	if err := web.CheckText("subject", &in.Subject, maxSubjectBytes, false); err != nil {
		return err
	}
	if strings.ContainsAny(in.Name+in.Subject, "\r\n") {
		return web.Invalid("name and subject must be a single line")
	}
	if err := web.CheckText("body", &in.Body, maxBodyBytes, true); err != nil {
		return err
	}
	return nil
}

func (in Input) isSpam() bool {
	return strings.TrimSpace(in.Website) != ""
}
