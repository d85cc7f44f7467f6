package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/josequispe9/ScraperMELI-Linkedin/models"
	"github.com/josequispe9/ScraperMELI-Linkedin/secrets"
	"github.com/spf13/cobra"
)

// newCredentialsCmd manages the LinkedIn password kept in the OS keyring.
// The account defaults to linkedin.keyring_account, then linkedin.email.
func newCredentialsCmd(g *globalFlags) *cobra.Command {
	var account string

	resolve := func() (string, error) {
		if a := strings.TrimSpace(account); a != "" {
			return a, nil
		}
		cfg, err := loadConfig(g)
		if err != nil {
			return "", err
		}
		if a := secrets.Account(cfg.LinkedIn); a != "" {
			return a, nil
		}
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			"no keyring account: pass --account or set linkedin.email", nil)
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Store the LinkedIn password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := resolve()
			if err != nil {
				return &exitError{code: exitInvalid, err: err}
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err == nil {
					err = errors.New("empty password")
				}
				return &exitError{code: exitInvalid, err: fmt.Errorf("read password from stdin: %w", err)}
			}
			if err := secrets.SetPassword(acct, password); err != nil {
				return &exitError{code: exitFailed, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password stored for %s\n", acct)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored LinkedIn password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := resolve()
			if err != nil {
				return &exitError{code: exitInvalid, err: err}
			}
			if err := secrets.DeletePassword(acct); err != nil {
				return &exitError{code: exitFailed, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password removed for %s\n", acct)
			return nil
		},
	}

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the LinkedIn password in the OS keyring",
	}
	cmd.PersistentFlags().StringVar(&account, "account", "", "keyring account (default: linkedin keyring_account or email)")
	cmd.AddCommand(set, del)
	return cmd
}
