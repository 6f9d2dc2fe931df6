package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"github.com/jo-hoe/recipe-app/internal/core"
	"github.com/jo-hoe/recipe-app/internal/deploy/compose"
	"github.com/jo-hoe/recipe-app/internal/waitfordb"
	"github.com/spf13/cobra"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openDatabase(ctx context.Context, config *core.ServiceConfig) (database.DatabaseService, error) {
	db, err := database.NewDatabase(ctx, config.Database.Type, config.Database.DSN(), config.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "dialect", db.Dialect())
	return db, nil
}

func waitForDBCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "wait-for-db",
		Aliases: []string{"wait_for_db"},
		Short:   "Block until the database accepts connections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			db, err := openDatabase(ctx, config)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := waitfordb.Wait(ctx, db, config.WaitForDB.Interval, config.WaitForDB.Timeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database available!")
			return nil
		},
	}
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			db, err := openDatabase(ctx, config)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			slog.Info("migrations applied", "dialect", db.Dialect())
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}

func createSuperuserCmd(opts *rootOptions) *cobra.Command {
	var email string
	var password string

	c := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a staff account with superuser rights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SUPERUSER_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required (--password or SUPERUSER_PASSWORD)")
			}
			config, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			db, err := openDatabase(ctx, config)
			if err != nil {
				return err
			}
			service := core.NewCoreService(config, db, nil)
			defer func() { _ = service.Close() }()

			user, err := service.CreateSuperuser(ctx, email, password)
			if err != nil {
				return err
			}
			slog.Info("superuser created", "user_id", user.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created successfully.\n", user.Email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "email address of the new account (required)")
	c.Flags().StringVar(&password, "password", "", "password of the new account (env SUPERUSER_PASSWORD)")
	_ = c.MarkFlagRequired("email")
	return c
}

func checkComposeCmd() *cobra.Command {
	var file string
	rules := compose.DefaultRules()

	c := &cobra.Command{
		Use:   "check-compose",
		Short: "Validate the docker compose file wiring of app and db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := compose.Load(file)
			if err != nil {
				return err
			}
			findings := f.Validate(rules)
			for _, finding := range findings {
				fmt.Fprintln(cmd.OutOrStdout(), finding.String())
			}
			if len(findings) > 0 {
				return fmt.Errorf("%s: %d finding(s)", file, len(findings))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "docker-compose.yml", "compose file to check")
	c.Flags().StringVar(&rules.AppService, "app-service", rules.AppService, "name of the application service")
	c.Flags().StringVar(&rules.DBService, "db-service", rules.DBService, "name of the database service")
	return c
}
