package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/rbac"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type seedUserOptions struct {
	email    string
	name     string
	password string
	role     string
}

func (o seedUserOptions) validate() error {
	if !strings.Contains(o.email, "@") {
		return fmt.Errorf("invalid --email %q", o.email)
	}
	if len(o.password) < 8 {
		return errors.New("--password must be at least 8 characters")
	}
	if strings.TrimSpace(o.role) == "" {
		return errors.New("--role must not be empty")
	}
	return nil
}

func newSeedUserCmd() *cobra.Command {
	var opts seedUserOptions

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create or overwrite a back-office account",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			hash, err := service.HashPassword(opts.password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			name := opts.name
			if name == "" {
				name = strings.SplitN(opts.email, "@", 2)[0]
			}
			u := &model.User{
				ID:           uuid.New(),
				Email:        strings.ToLower(strings.TrimSpace(opts.email)),
				Name:         name,
				PasswordHash: hash,
				Role:         opts.role,
				Active:       true,
			}
			if err := repository.NewUserRepository(db).UpsertByEmail(cmd.Context(), u); err != nil {
				return fmt.Errorf("upsert user: %w", err)
			}
			log.Info().Str("email", u.Email).Str("role", u.Role).Msg("user seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Account e-mail (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (default: e-mail local part)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Plain text password (required)")
	cmd.Flags().StringVar(&opts.role, "role", rbac.AdminRole, "Role name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
