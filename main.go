package main

import (
	"os"

	"github.com/spf13/cobra"

	"biblio-backend/internal/platform/db"
)

// @title       biblio-backend API
// @version     1.0
// @description University library back-end: members, books, loans, returns and penalties.
// @BasePath    /api/v1
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "biblio-backend",
		Short:        "University library back-end",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", db.DefaultConfigPath, "path to config.yaml")
	root.AddCommand(newServeCmd(&cfgPath), newLibrarianCmd(&cfgPath))
	return root
}
