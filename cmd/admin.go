package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/config"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/dynamo"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/postgres"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/roles"
	"github.com/spf13/cobra"
)

var grantRoleCmd = &cobra.Command{
	Use:   "grant-role <email> <role>",
	Short: "Grant a role to an existing account",
	Long: `Grant a role to an existing account. This is the only way to provision
admins.

Example:
  event-ticketing grant-role organiser@example.com admin`,
	Args: cobra.ExactArgs(2),
	RunE: runGrantRole,
}

var createTableCmd = &cobra.Command{
	Use:   "create-table",
	Short: "Create the DynamoDB table",
	Args:  cobra.NoArgs,
	RunE:  runCreateTable,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(grantRoleCmd, createTableCmd, migrateCmd)
}

func runGrantRole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	role, err := roles.ParseRole(args[1])
	if err != nil {
		return err
	}

	db, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	account, err := db.GetAccountByEmail(ctx, accounts.NormalizeEmail(args[0]))
	if err != nil {
		return fmt.Errorf("failed to find account %q: %w", args[0], err)
	}

	_, err = roles.GrantRole(ctx, db, account.ID, role, time.Now())
	if err != nil {
		var rolesErr *roles.Error
		if errors.As(err, &rolesErr) && rolesErr.Reason == roles.REASON_GRANT_ALREADY_EXISTS {
			printf(cmd, "%s already has role %s\n", account.Email, role)
			return nil
		}
		return err
	}

	printf(cmd, "granted %s to %s (%s)\n", role, account.Email, account.ID)
	return nil
}

func runCreateTable(cmd *cobra.Command, _ []string) error {
	if cfg.Store.Driver != config.DRIVER_DYNAMO {
		return fmt.Errorf("create-table needs the dynamo store, configured store is %q", cfg.Store.Driver)
	}

	client, err := newDynamoClient(cmd.Context())
	if err != nil {
		return err
	}
	if err := dynamo.CreateTable(cmd.Context(), client, cfg.Dynamo.Table); err != nil {
		return err
	}

	printf(cmd, "created table %s\n", cfg.Dynamo.Table)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.Store.Driver != config.DRIVER_POSTGRES {
		return fmt.Errorf("migrate needs the postgres store, configured store is %q", cfg.Store.Driver)
	}

	pool, err := postgres.NewPool(cmd.Context(), cfg.Postgres.DSN, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewDB(pool).Migrate(cmd.Context()); err != nil {
		return err
	}

	printf(cmd, "schema applied\n")
	return nil
}
