package cli

import (
	"errors"
	"fmt"

	"github.com/fitiq/fitiq/internal/client/client"
	"github.com/fitiq/fitiq/internal/client/models"
	"github.com/fitiq/fitiq/internal/client/services"
	"github.com/spf13/cobra"
)

func (r *runner) credentials(email string) (string, string, error) {
	var err error
	if email == "" {
		if email, err = GetSimpleText(r.app.in, "Email", r.app.out); err != nil {
			return "", "", err
		}
	}
	password, err := GetPassword(r.app.in, r.app.out)
	if err != nil {
		return "", "", err
	}
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func (r *runner) registerCommand() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and start a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			email, password, err := r.credentials(email)
			if err != nil {
				return err
			}
			if name == "" {
				if name, err = GetSimpleText(r.app.in, "Name", r.app.out); err != nil {
					return err
				}
			}

			u, err := r.app.auth.Register(ctx, email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.app.out, "Registered %s (%s)\n", u.Email, u.ID)

			if name != "" {
				if _, err := r.app.profile.UpdateMetadata(ctx, models.MetadataPatch{Name: &name}); err != nil {
					return err
				}
			}
			r.trySync(cmd)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func (r *runner) loginCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := r.credentials(email)
			if err != nil {
				return err
			}
			u, err := r.app.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(r.app.out, "Logged in as %s\n", u.Email)
			r.trySync(cmd)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (r *runner) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session; cached data stays on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(r.app.out, "Logged out")
			return nil
		},
	}
}

func (r *runner) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := r.app.auth.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(r.app.out, "%s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
}

// trySync delivers queued changes right away when the backend is reachable.
func (r *runner) trySync(cmd *cobra.Command) {
	_, err := r.app.sync.Sync(cmd.Context())
	switch {
	case err == nil:
	case client.IsTransient(err):
		fmt.Fprintln(r.app.out, "Backend unreachable; changes will sync later")
	case errors.Is(err, services.ErrNotLoggedIn):
	default:
		r.app.logger.Warn(cmd.Context(), "sync after login failed", "error", err)
	}
}
