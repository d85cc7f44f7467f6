package site

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
)

// LoginPage is the part of a browser page the login flow drives.
type LoginPage interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	URL() string
}

// Credentials are the account used to log in.
type Credentials struct {
	Email    string
	Password string
}

const (
	usernameSelector = "#username"
	passwordSelector = "#password"
	submitSelector   = `button[type="submit"]`
)

// Login settles within loginWait, polling the URL every loginPoll.
var (
	loginWait = 20 * time.Second
	loginPoll = 500 * time.Millisecond
)

// Login signs in through the site's login form. It succeeds once the page
// lands on the feed or the jobs area; a checkpoint or challenge page is a
// LOGIN_FAILED error.
func Login(ctx context.Context, page LoginPage, s *Site, creds Credentials) error {
	if s.LoginURL == "" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, s.Name+" has no login flow", nil)
	}
	if creds.Email == "" || creds.Password == "" {
		return models.NewScrapeError(models.ErrCodeLogin, "missing credentials", nil)
	}

	log := slog.With("site", s.Name)
	log.Info("logging in")

	if err := page.Navigate(ctx, s.LoginURL); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "login page did not load", err)
	}
	if err := page.Fill(ctx, usernameSelector, creds.Email); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "username field not found", err)
	}
	if err := page.Fill(ctx, passwordSelector, creds.Password); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "password field not found", err)
	}
	if err := page.Click(ctx, submitSelector); err != nil {
		return models.NewScrapeError(models.ErrCodeLogin, "submit button not found", err)
	}

	deadline := time.NewTimer(loginWait)
	defer deadline.Stop()
	tick := time.NewTicker(loginPoll)
	defer tick.Stop()

	for {
		if loggedIn(page.URL()) {
			log.Info("login succeeded")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			final := page.URL()
			log.Warn("login did not reach the feed", "url", final)
			return models.NewScrapeError(models.ErrCodeLogin,
				"login ended on "+final, errors.New("unexpected post-login page"))
		case <-tick.C:
		}
	}
}

func loggedIn(u string) bool {
	return strings.Contains(u, "feed") || strings.Contains(u, "jobs")
}
