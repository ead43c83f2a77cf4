package main

import (
	"fmt"
	"log"
	"os"

	_ "taskify/docs"
	"taskify/internal/config"
	"taskify/internal/server"
	"taskify/migrations"

	"github.com/spf13/cobra"
)

// @title           Taskify API
// @version         1.0
// @description     Personal and group task management.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	log.SetPrefix("[taskify] ")
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskify",
		Short:         "Taskify API server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		migrateCmd(),
	)
	return root
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := server.Init(cfg)
	if err != nil {
		log.Printf("Server initialization failed: %v", err)
		return err
	}
	defer s.Close()

	return s.Run()
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if err := migrations.Up(cfg.MigrationURL()); err != nil {
					return err
				}
				log.Println("Migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if err := migrations.Down(cfg.MigrationURL()); err != nil {
					return err
				}
				log.Println("Rolled back one migration")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				v, dirty, err := migrations.Version(cfg.MigrationURL())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}
