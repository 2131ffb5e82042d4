package main

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Lead is a contact request captured from the public site forms.
type Lead struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email,omitempty" db:"email"`
	Message   string    `json:"message,omitempty" db:"message"`
	Page      string    `json:"page,omitempty" db:"page"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the fields a lead submission must carry. Length caps keep
// junk out of the database; the form itself enforces friendlier limits.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" || strings.TrimSpace(l.Phone) == "" {
		return errors.New("name and phone are required")
	}
	if len(l.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if len(l.Phone) > 30 {
		return errors.New("phone too long (max 30 characters)")
	}
	if len(l.Email) > 254 {
		return errors.New("email too long")
	}
	if len(l.Message) > 2000 {
		return errors.New("message too long (max 2000 characters)")
	}
	if len(l.Page) > 500 {
		return errors.New("page too long")
	}
	return nil
}

// ContentEntry is a managed piece of site content (service description,
// location page, blog post) edited through the admin panel.
type ContentEntry struct {
	ID        string    `json:"id" db:"id"`
	Section   string    `json:"section" db:"section"`
	Title     string    `json:"title" db:"title"`
	Slug      string    `json:"slug" db:"slug"`
	Body      string    `json:"body" db:"body"`
	Published bool      `json:"published" db:"published"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var validSections = map[string]bool{"services": true, "locations": true, "posts": true}

// Validate checks a content entry before it is written.
func (c *ContentEntry) Validate() error {
	if c.Title == "" || c.Section == "" {
		return errors.New("missing title or section")
	}
	if !validSections[c.Section] {
		return errors.New("invalid section")
	}
	if len(c.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if len(c.Slug) > 200 {
		return errors.New("slug too long (max 200 characters)")
	}
	return nil
}

// Claims represents the session token claims. The role is fixed to "admin";
// there is exactly one principal.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIResponse is the fixed response envelope for all JSON endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Error messages, one per taxonomy entry. Credential failures are
// deliberately generic so the response never narrows the credential space.
const (
	errInvalidBody     = "Invalid request body"
	errInvalidInput    = "Invalid input"
	errBadCredentials  = "Invalid credentials"
	errUnauthorized    = "Unauthorized: valid admin session required"
	errNotFound        = "Not found"
	errTooManyAttempts = "Too many login attempts. Please try again later."
	errTooManyLeads    = "Too many submissions. Please try again later."
	errInternal        = "Internal server error"
)
