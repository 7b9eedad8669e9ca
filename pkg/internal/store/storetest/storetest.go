// Package storetest opens throwaway in-memory databases for tests.
package storetest

import (
	"fmt"
	"testing"

	"git.solsynth.dev/hypernet/converse/pkg/internal/database"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory database private to the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.NewConfig())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	raw, err := db.DB()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = raw.Close() })

	if err := database.RunMigration(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}
