package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"teamreports/internal/backend"
	"teamreports/internal/config"
	"teamreports/internal/core"
	"teamreports/internal/export"
	"teamreports/internal/services"
)

// BackendOpener returns the stores for the configured backend. Tests swap
// it for an in-memory one.
type BackendOpener func(ctx context.Context) (*backend.Result, error)

// ConfiguredBackend opens the backend selected by the environment.
func ConfiguredBackend(ctx context.Context) (*backend.Result, error) {
	cfg := config.Load()
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	// The admin tool never publishes; mirroring is left to the sweep.
	bcfg.AMQPURL = ""
	return backend.NewFactory(nil).Create(ctx, bcfg)
}

// NewAdminCommand is the root of teamreports-admin.
func NewAdminCommand(open BackendOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "teamreports-admin",
		Short:         "Administer accounts and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewCreateUserCommand(open), NewExportCommand(open))
	return root
}

// NewCreateUserCommand creates an account in the configured store.
func NewCreateUserCommand(open BackendOpener) *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Long: `Create a user account with a bcrypt-hashed password.

Roles: member (submits reports), leader and superior (view and export).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := core.ParseRole(role)
			if err != nil {
				return err
			}
			res, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			defer res.Close()

			u, err := services.NewAuthService(res.Users, nil).Register(cmd.Context(), email, password, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", u.Email, u.Role, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail (required)")
	cmd.Flags().StringVar(&password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&role, "role", "member", "member, leader or superior")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewExportCommand writes the master report to a file or stdout.
func NewExportCommand(open BackendOpener) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the master report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			res, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			defer res.Close()

			doc, err := services.NewExportService(res.Records, nil, nil).Export(cmd.Context(), f)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(doc.Body)
				return err
			}
			if err := os.WriteFile(out, doc.Body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d categories, %d bytes)\n", out, doc.Categories, len(doc.Body))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "pdf or xlsx")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, stdout when empty")
	return cmd
}
