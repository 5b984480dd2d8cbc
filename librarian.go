package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"biblio-backend/internal/platform/auth"
	"biblio-backend/internal/platform/db"
)

func newLibrarianCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "librarian",
		Short: "Manage librarian accounts",
	}

	var in auth.RegisterRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a librarian account (password is prompted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := db.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			pw, err := promptPassword()
			if err != nil {
				return err
			}
			in.Password = pw
			return addLibrarian(cmd.Context(), cfg, in)
		},
	}
	add.Flags().StringVar(&in.Login, "login", "", "login name")
	add.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	add.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	_ = add.MarkFlagRequired("login")
	_ = add.MarkFlagRequired("last-name")
	_ = add.MarkFlagRequired("first-name")

	cmd.AddCommand(add)
	return cmd
}

// promptPassword は2回入力させて一致を確認する
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt needs a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return strings.TrimSpace(string(first)), nil
}

func addLibrarian(ctx context.Context, cfg *db.Config, in auth.RegisterRequest) error {
	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := auth.NewService(conn, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL).Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("librarian %q created (id=%d)\n", res.Login, res.ID)
	return nil
}
