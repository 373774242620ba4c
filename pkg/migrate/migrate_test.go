package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-core/pkg/config"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestMigrationsContainSchemas(t *testing.T) {
	checks := map[string][]string{
		"*_create_coupons_table.sql": {
			"CREATE TABLE IF NOT EXISTS coupons",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_coupons_code ON coupons (UPPER(code))",
			"used_count integer NOT NULL DEFAULT 0",
		},
		"*_create_orders_tables.sql": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE TABLE IF NOT EXISTS order_items",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		},
		"*_create_cart_items_table.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_identity_product",
		},
		"*_create_outbox_events_table.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
		},
	}

	for pattern, statements := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		require.NoError(t, err)
		require.Len(t, matches, 1, pattern)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)
		for _, stmt := range statements {
			assert.Contains(t, string(data), stmt, pattern)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 2, 8, 30, 0, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Coupon Colors!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261002083000_add_coupon_colors.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "-- +goose Up"))
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "Add Coupon Colors!", now)
	assert.ErrorContains(t, err, "already exists")

	_, err = createSQLMigrationAt(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "invalid migration filename")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20261001000000_a.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "missing")

	dir = t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20261001000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20261001000000_b.sql"), body, 0o644))
	assert.ErrorContains(t, ValidateDir(dir), "duplicate migration version")
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20261001090200")
	require.NoError(t, err)
	assert.Equal(t, int64(20261001090200), v)

	_, err = ParseVersion("")
	assert.Error(t, err)
	_, err = ParseVersion("2026")
	assert.Error(t, err)
	_, err = ParseVersion("2026100109020x")
	assert.Error(t, err)
}

func TestShouldAutoRun(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	assert.False(t, ShouldAutoRun(cfg))

	cfg.FeatureFlags.AutoMigrate = true
	assert.True(t, ShouldAutoRun(cfg))

	cfg.App.Env = config.AppEnvProd
	assert.False(t, ShouldAutoRun(cfg))
	assert.False(t, ShouldAutoRun(nil))
}
