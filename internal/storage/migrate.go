package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// ErrInvalidDirection is returned for a direction other than up or down.
var ErrInvalidDirection = errors.New(`direction must be "up" or "down"`)

// Migrate applies the embedded migrations to the database at url. It
// reports whether anything changed.
func Migrate(url, direction string) (bool, error) {
	if direction != DirectionUp && direction != DirectionDown {
		return false, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return false, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return false, fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case DirectionUp:
		err = m.Up()
	case DirectionDown:
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migrate %s: %w", direction, err)
	}
	return true, nil
}
