// Package integration exercises the ledger engine against a real
// PostgreSQL instance provisioned through testcontainers. The schema
// comes from the migrations directory, not from AutoMigrate, so these
// tests double as a migration smoke check.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/karkhana-erp/backend/internal/domain/account"
	"github.com/karkhana-erp/backend/internal/domain/party"
	"github.com/karkhana-erp/backend/internal/domain/stock"
	"github.com/karkhana-erp/backend/internal/infrastructure/persistence"
)

var (
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is one migrated PostgreSQL database available to a test
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a dedicated PostgreSQL container, runs all
// migrations and returns the connection. The container is terminated
// when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startContainer(t, "khata_test")
	db, sqlDB := connectToDatabase(t, dsn)
	runMigrations(t, sqlDB)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       dsn,
		t:         t,
	}
	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

// NewSharedTestDB returns a connection to a container shared by the
// whole package. Tests using it must tolerate or clean up rows left by
// earlier tests; CleanTables gives them a blank slate.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer == nil {
		container, dsn := startContainer(t, "khata_shared_test")
		sharedContainer = container
		sharedContainerDSN = dsn

		_, sqlDB := connectToDatabase(t, dsn)
		runMigrations(t, sqlDB)
		sqlDB.Close()
	}

	db, sqlDB := connectToDatabase(t, sharedContainerDSN)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: sharedContainer,
		DSN:       sharedContainerDSN,
		t:         t,
	}
	t.Cleanup(func() {
		if testDB.SqlDB != nil {
			testDB.SqlDB.Close()
		}
	})
	return testDB
}

// Close closes the connection and, for dedicated containers, tears the
// container down. The shared container stays up for later tests.
func (tdb *TestDB) Close() {
	ctx := context.Background()

	if tdb.SqlDB != nil {
		tdb.SqlDB.Close()
	}
	if tdb.Container != nil && tdb.Container != sharedContainer {
		if err := tdb.Container.Terminate(ctx); err != nil {
			tdb.t.Logf("warning: failed to terminate container: %v", err)
		}
	}
}

// Persistence wraps the connection in the Database handle the
// transaction scopes are built from.
func (tdb *TestDB) Persistence() *persistence.Database {
	return &persistence.Database{DB: tdb.DB}
}

// CleanTables truncates every application table, leaving
// schema_migrations alone
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "failed to list tables")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("warning: failed to truncate table %s: %v", table, err)
		}
	}
}

// SeedParty inserts a party master row and returns it
func (tdb *TestDB) SeedParty(code, name string, partyType party.PartyType) *party.Party {
	tdb.t.Helper()

	p, err := party.NewParty(code, name, partyType)
	require.NoError(tdb.t, err)
	p.ClearDomainEvents()
	require.NoError(tdb.t, tdb.DB.Create(p).Error, "failed to seed party %s", code)
	return p
}

// SeedAccount inserts a money account master row and returns it
func (tdb *TestDB) SeedAccount(code, name string, accountType account.Type, openingBalance decimal.Decimal) *account.Account {
	tdb.t.Helper()

	a, err := account.NewAccount(code, name, accountType, openingBalance)
	require.NoError(tdb.t, err)
	a.ClearDomainEvents()
	require.NoError(tdb.t, tdb.DB.Create(a).Error, "failed to seed account %s", code)
	return a
}

// SeedRawMaterial inserts a raw material master row and returns it
func (tdb *TestDB) SeedRawMaterial(code, name, unit string, reorderLevel decimal.Decimal) *stock.RawMaterial {
	tdb.t.Helper()

	m := &stock.RawMaterial{Code: code, Name: name, Unit: unit, ReorderLevel: reorderLevel}
	m.ID = uuid.New()
	require.NoError(tdb.t, tdb.DB.Create(m).Error, "failed to seed raw material %s", code)
	return m
}

// SeedFinishedProduct inserts a finished product master row and returns it
func (tdb *TestDB) SeedFinishedProduct(code, name, unit string, reorderLevel decimal.Decimal) *stock.FinishedProduct {
	tdb.t.Helper()

	p := &stock.FinishedProduct{Code: code, Name: name, Unit: unit, ReorderLevel: reorderLevel}
	p.ID = uuid.New()
	require.NoError(tdb.t, tdb.DB.Create(p).Error, "failed to seed finished product %s", code)
	return p
}

// PartyOutstanding reads a party's stored outstanding straight from the table
func (tdb *TestDB) PartyOutstanding(partyID uuid.UUID) decimal.Decimal {
	tdb.t.Helper()

	var raw string
	err := tdb.DB.Raw("SELECT outstanding FROM parties WHERE id = ?", partyID).Scan(&raw).Error
	require.NoError(tdb.t, err)
	d, err := decimal.NewFromString(raw)
	require.NoError(tdb.t, err)
	return d
}

// AccountBalance reads an account's balance straight from the table
func (tdb *TestDB) AccountBalance(accountID uuid.UUID) decimal.Decimal {
	tdb.t.Helper()

	var raw string
	err := tdb.DB.Raw("SELECT balance FROM accounts WHERE id = ?", accountID).Scan(&raw).Error
	require.NoError(tdb.t, err)
	d, err := decimal.NewFromString(raw)
	require.NoError(tdb.t, err)
	return d
}

func startContainer(t *testing.T, dbName string) (testcontainers.Container, string) {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	return container, dsn
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := findMigrationsPath()
	require.NotEmpty(t, migrationsPath, "could not find migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "failed to create migration driver")

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsPath,
		"postgres",
		driver,
	)
	require.NoError(t, err, "failed to create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "failed to run migrations")
	}
}

func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	// Walk up from tests/integration to the repository root
	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		migrationsPath := filepath.Join(dir, "migrations")
		if _, err := os.Stat(migrationsPath); err == nil {
			return migrationsPath
		}
		dir = filepath.Dir(dir)
	}

	if wd, err := os.Getwd(); err == nil {
		paths := []string{
			filepath.Join(wd, "migrations"),
			filepath.Join(wd, "..", "migrations"),
			filepath.Join(wd, "..", "..", "migrations"),
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// CleanupSharedContainer terminates the shared container; call it from
// TestMain when the package uses NewSharedTestDB.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}
