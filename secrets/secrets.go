// Package secrets looks up site passwords in the OS keyring.
package secrets

import (
	"errors"
	"strings"

	"github.com/josequispe9/ScraperMELI-Linkedin/config"
	"github.com/zalando/go-keyring"
)

// KeyringService groups the scraper's entries in the OS keychain.
const KeyringService = "scraper"

// ErrNotFound is returned when no password is configured or stored.
var ErrNotFound = errors.New("secrets: password not found (set it in config, env or keychain)")

// Password returns the site password: the configured value first, then the
// keyring entry under KeyringAccount (or Email when no account is set).
func Password(site config.SiteConfig) (string, error) {
	if strings.TrimSpace(site.Password) != "" {
		return site.Password, nil
	}
	account := Account(site)
	if account == "" {
		return "", ErrNotFound
	}
	pw, err := keyring.Get(KeyringService, account)
	if err != nil || strings.TrimSpace(pw) == "" {
		return "", ErrNotFound
	}
	return pw, nil
}

// SetPassword stores a password for account.
func SetPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("secrets: keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("secrets: password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

// DeletePassword removes the entry for account.
func DeletePassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("secrets: keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// Account is the keyring account name for a site.
func Account(site config.SiteConfig) string {
	if a := strings.TrimSpace(site.KeyringAccount); a != "" {
		return a
	}
	return strings.TrimSpace(site.Email)
}
