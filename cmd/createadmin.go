/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/quickkart/authserver/config"
	"github.com/quickkart/authserver/internal/db"
	"github.com/quickkart/authserver/internal/store"
	"github.com/quickkart/authserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// createAdminCmd bootstraps an administrator account directly against the
// database, bypassing the HTTP create endpoint and its shared secret.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin <id> <password>",
	Short: "Create an administrator account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer dbConn.Close()

		hashed, err := bcrypt.GenerateFromPassword([]byte(args[1]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		repo := store.NewAdminRepository(dbConn)
		if _, err := repo.Create(cmd.Context(), types.Admin{
			ID:           args[0],
			PasswordHash: string(hashed),
		}); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("admin %q already exists", args[0])
			}
			return err
		}

		fmt.Printf("Admin created: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
}
