package main

import (
	"fmt"
	"os"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Operator tasks for the storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(cfg, log), userCmd(cfg, log, openUsers))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
