package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	identitydomain "github.com/smallbiznis/sprintboard/internal/identity/domain"
	issuedomain "github.com/smallbiznis/sprintboard/internal/issue/domain"
	projectdomain "github.com/smallbiznis/sprintboard/internal/project/domain"
	sprintdomain "github.com/smallbiznis/sprintboard/internal/sprint/domain"
	"github.com/smallbiznis/sprintboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&identitydomain.User{},
		&projectdomain.Project{},
		&sprintdomain.Sprint{},
		&issuedomain.Issue{},
	}
}

// Run brings the schema up to date: versioned SQL migrations on postgres,
// gorm AutoMigrate on the other dialects when enabled.
func Run(conn *gorm.DB, dialect string, autoMigrate bool, log *zap.Logger) error {
	if dialect == db.TypePostgres {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("schema migrations applied", zap.String("dialect", dialect))
		return nil
	}
	if !autoMigrate {
		log.Info("schema migration skipped", zap.String("dialect", dialect))
		return nil
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("schema auto-migrated", zap.String("dialect", dialect))
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
