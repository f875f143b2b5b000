/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storefront/apiserver/config"
	"github.com/storefront/apiserver/internal/auth"
	"github.com/storefront/apiserver/internal/db"
	"github.com/storefront/apiserver/internal/store"
	"github.com/storefront/apiserver/types"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin account",
	Long: `Creates a verified ADMIN account if one does not exist. Usage:

	storefront seed --email admin@example.com --password changeme
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || len(password) < 8 {
			return errors.New("email and a password of at least 8 characters are required")
		}

		cfg := config.LoadConfig()
		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		users := store.NewUserRepository(dbConn)
		if _, err := users.GetByEmail(cmd.Context(), email); err == nil {
			fmt.Println("admin account already exists")
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		passwordHash, err := auth.HashSecret(password)
		if err != nil {
			return err
		}

		user, err := users.Create(cmd.Context(), types.User{
			Email:           email,
			Name:            "Administrator",
			PasswordHash:    passwordHash,
			Role:            types.RoleAdmin,
			Provider:        types.ProviderLocal,
			IsEmailVerified: true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created admin account %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("email", "", "admin email address")
	seedCmd.Flags().String("password", "", "admin password")
}
