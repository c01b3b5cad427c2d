package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/db"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/repo/mongodb"
	"github.com/geocoder89/storefront/internal/repo/postgres"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/spf13/cobra"
)

type userCreator interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

// usersOpener connects the credential store; the returned func releases it.
type usersOpener func(ctx context.Context, cfg config.Config) (userCreator, func(), error)

func userCmd(cfg config.Config, log *slog.Logger, open usersOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var req user.RegisterRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a hashed password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fe := req.Validate(); !fe.Empty() {
				return fe
			}

			hash, err := security.NewHasher().Hash(req.Password)
			if err != nil {
				return err
			}

			u, err := user.New(req.Name, req.Email, hash)
			if err != nil {
				return err
			}

			ctx, cancel := config.WithTimeout(15 * time.Second)
			defer cancel()

			users, closeFn, err := open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			created, err := users.Create(ctx, u)
			if err != nil {
				if errors.Is(err, user.ErrEmailTaken) {
					return fmt.Errorf("user with email %s already exists", u.Email)
				}
				return err
			}

			log.Info("user created", "id", created.ID, "email", created.Email)
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		},
	}

	create.Flags().StringVar(&req.Name, "name", "", "display name")
	create.Flags().StringVar(&req.Email, "email", "", "login email")
	create.Flags().StringVar(&req.Password, "password", "", "plain text password, hashed before storing")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

// openUsers connects the configured persistent store. The memory store is
// rejected since nothing would outlive the command.
func openUsers(ctx context.Context, cfg config.Config) (userCreator, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUsersRepo(pool, nil), pool.Close, nil

	case config.StoreMongo:
		client, database, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return mongodb.NewUsersRepo(database, nil), func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("store driver %q does not persist users", cfg.StoreDriver)
	}
}
