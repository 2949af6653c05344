package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/persistence"
	"github.com/spec-kit/product-links/internal/repository"
	"github.com/spec-kit/product-links/internal/service"
)

func newStaffCmd() *cobra.Command {
	staffCmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}
	staffCmd.AddCommand(
		newStaffCreateCmd(),
		newStaffToggleCmd("activate", "Re-enable a staff account", true),
		newStaffToggleCmd("deactivate", "Disable a staff account", false),
	)
	return staffCmd
}

func newStaffToggleCmd(use, short string, active bool) *cobra.Command {
	var email string

	toggleCmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authService, done, err := openAuthService(cmd)
			if err != nil {
				return err
			}
			defer done()

			staff, err := authService.SetStaffActive(cmd.Context(), email, active)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staff %s active=%t\n", staff.Email, staff.Active)
			return nil
		},
	}

	toggleCmd.Flags().StringVar(&email, "email", "", "login email")
	_ = toggleCmd.MarkFlagRequired("email")
	return toggleCmd
}

func openAuthService(cmd *cobra.Command) (*service.AuthService, func(), error) {
	rt, err := loadRuntime()
	if err != nil {
		return nil, nil, err
	}
	pg, err := persistence.NewPostgres(cmd.Context(), rt.cfg.Postgres, rt.logger)
	if err != nil {
		rt.close()
		return nil, nil, err
	}
	done := func() {
		pg.Close()
		rt.close()
	}
	if pg.PoolHandle() == nil {
		done()
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}

	authService := service.NewAuthService(*rt.cfg, service.AuthDependencies{
		StaffRepo: repository.NewStaffRepository(pg.PoolHandle()),
	})
	return authService, done, nil
}

func newStaffCreateCmd() *cobra.Command {
	var (
		name     string
		email    string
		password string
		role     string
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("STAFF_PASSWORD")
			}
			if password == "" {
				return errors.New("--password or STAFF_PASSWORD is required")
			}

			authService, done, err := openAuthService(cmd)
			if err != nil {
				return err
			}
			defer done()

			staff, err := authService.CreateStaff(cmd.Context(), service.StaffCreateInput{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     domain.StaffRole(strings.ToUpper(role)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created staff %s (%s, %s)\n", staff.ID, staff.Email, staff.Role)
			return nil
		},
	}

	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&email, "email", "", "login email")
	createCmd.Flags().StringVar(&password, "password", "", "password (or STAFF_PASSWORD)")
	createCmd.Flags().StringVar(&role, "role", string(domain.StaffRoleViewer), "VIEWER, MANAGER or ADMIN")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("email")
	return createCmd
}
