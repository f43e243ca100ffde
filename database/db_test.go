package database

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"famportal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect("sqlite://:memory:", slog.Default())
	require.NoError(t, err)

	require.NoError(t, Migrate(context.Background(), db, slog.Default(), "", ""))
	// second run must be a no-op
	require.NoError(t, Migrate(context.Background(), db, slog.Default(), "", ""))

	var settings []models.Setting
	require.NoError(t, db.Find(&settings).Error)
	require.Len(t, settings, 1)
	assert.Equal(t, 60.0, settings[0].UserSharePercent)
	assert.Equal(t, 40.0, settings[0].FamilySharePercent)
}

func TestDialectorRejectsUnknownScheme(t *testing.T) {
	_, _, err := dialector("oracle://scott:tiger@db", slog.Default())
	assert.Error(t, err)

	_, _, err = dialector("", slog.Default())
	assert.Error(t, err)
}

func TestMySQLDSNAddsTimeouts(t *testing.T) {
	t.Setenv("DB_TLS", "skip")
	dsn, err := mysqlDSN("family:pw@tcp(127.0.0.1:3306)/portal?charset=utf8mb4")
	require.NoError(t, err)
	assert.Contains(t, dsn, "timeout=10s")
	assert.Contains(t, dsn, "readTimeout=10s")
	assert.Contains(t, dsn, "parseTime=true")
	assert.NotContains(t, dsn, "tls=")
}

func TestMySQLDSNDefaultsToTLS(t *testing.T) {
	t.Setenv("DB_TLS", "")
	t.Setenv("DB_TLS_VERIFY", "")
	dsn, err := mysqlDSN("family:pw@tcp(127.0.0.1:3306)/portal")
	require.NoError(t, err)
	assert.Contains(t, dsn, "tls=true")
}

func TestRedactDSN(t *testing.T) {
	out := redactDSN("family:hunter22@tcp(127.0.0.1:3306)/portal")
	assert.False(t, strings.Contains(out, "hunter22"))
	assert.Contains(t, out, "******")
}
