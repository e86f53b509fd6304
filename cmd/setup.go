package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/showsync/internal/shared"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	switch {
	case cmd.Bool("status"):
		return r.migrationStatus(ctx)
	case cmd.Bool("rollback"):
		return r.rollback(ctx)
	}

	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	created := false
	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			created = true
			if config, err := shared.LoadConfig(configPath); err == nil {
				r.config = config
			} else {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			}
		}
	}

	if id, secret := cmd.String("client-id"), cmd.String("client-secret"); id != "" || secret != "" {
		if err := r.saveCredentials(configPath, id, secret); err != nil {
			return err
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(ctx); err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)

	if created && cmd.String("client-id") == "" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Add your Trakt client_id and client_secret to %s\n", configPath)
		r.writePlain("2. Run 'showsync auth login' to connect your account\n")
	}
	return nil
}

func (r *Runner) migrationStatus(ctx context.Context) error {
	db, err := r.database(ctx)
	if err != nil {
		return err
	}
	statuses, err := shared.MigrationStatuses(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	for _, s := range statuses {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		if err := r.writePlain("%s %04d %s\n", mark, s.Version, s.Name); err != nil {
			return err
		}
	}
	return nil
}

// saveCredentials stores the Trakt application credentials in the config file.
func (r *Runner) saveCredentials(path, clientID, clientSecret string) error {
	if clientID != "" {
		r.config.Credentials.Trakt.ClientID = clientID
	}
	if clientSecret != "" {
		r.config.Credentials.Trakt.ClientSecret = clientSecret
	}
	if err := shared.SaveConfig(path, r.config); err != nil {
		return err
	}
	r.logger.Info("credentials saved", "path", path)
	return nil
}

func (r *Runner) rollback(ctx context.Context) error {
	db, err := r.database(ctx)
	if err != nil {
		return err
	}
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.writePlain("✓ Rolled back the latest migration\n")
}
