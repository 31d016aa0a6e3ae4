// Command admin runs operator tasks against the database directly, outside
// any request session. It bootstraps the first administrator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/diewo77/go-complaints/internal/blob"
	"github.com/diewo77/go-complaints/internal/config"
	"github.com/diewo77/go-complaints/internal/db"
	"github.com/diewo77/go-complaints/internal/gateway"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/logging"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
	"github.com/diewo77/go-complaints/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage: admin <command> [args]

commands:
  migrate                  apply database migrations
  grant-admin <email>      give an account the admin role
  revoke-admin <email>     take the admin role away
  list-roles <email>       print the roles an account holds
  delete-account <email>   delete an account, its complaints and files
`

var errUsage = errors.New("invalid usage")

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger, err := logging.New(cfg.App.LogLevel, cfg.App.Dev)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("admin command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	conn, err := db.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if args[0] == "migrate" {
		if len(args) != 1 {
			return errUsage
		}
		if err := db.Migrate(conn, cfg.Database.URL(), cfg.App.Migrations, logger); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	}

	var gw *gateway.Gateway
	if args[0] == "delete-account" {
		bucket, err := blob.Open(ctx, cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("open bucket: %w", err)
		}
		gw = newGateway(conn, bucket, logger)
	}
	return dispatch(ctx, identity.New(conn, logger), gw, args, out)
}

func newGateway(conn *gorm.DB, bucket *blob.Bucket, logger *zap.Logger) *gateway.Gateway {
	st := store.New(conn, policy.NewAuthorizer(conn, 0, logger), logger)
	return gateway.New(st, bucket, identity.New(conn, logger), nil, logger)
}

// dispatch runs every command that needs no schema work.
func dispatch(ctx context.Context, ids *identity.Service, gw *gateway.Gateway, args []string, out io.Writer) error {
	if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
		return errUsage
	}
	email := args[1]

	switch args[0] {
	case "grant-admin":
		if _, err := ids.GrantRoleByEmail(ctx, email, models.RoleAdmin); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is now an admin\n", email)
	case "revoke-admin":
		removed, err := ids.RevokeRoleByEmail(ctx, email, models.RoleAdmin)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(out, "%s was not an admin\n", email)
			return nil
		}
		fmt.Fprintf(out, "%s is no longer an admin\n", email)
	case "list-roles":
		roles, err := ids.RolesByEmail(ctx, email)
		if err != nil {
			return err
		}
		for _, r := range roles {
			fmt.Fprintln(out, r)
		}
	case "delete-account":
		if gw == nil {
			return errUsage
		}
		a, err := ids.AccountByEmail(ctx, email)
		if err != nil {
			return err
		}
		if err := gw.DeleteAccount(ctx, a.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", email)
	default:
		return errUsage
	}
	return nil
}
