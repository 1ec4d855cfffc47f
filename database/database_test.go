package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT * FROM users WHERE email = ? AND role = ?"
	assert.Equal(t, q, Rebind("sqlite", q))
	assert.Equal(t, q, Rebind("mysql", q))
	assert.Equal(t, "SELECT * FROM users WHERE email = $1 AND role = $2", Rebind("postgres", q))
	assert.Equal(t, "SELECT '?' FROM t WHERE a = $1", Rebind("pgx", "SELECT '?' FROM t WHERE a = ?"))
}

func TestOpen_SQLiteMemoryMigratesAndSeeds(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureAdmin(db, "sqlite", "usr-admin", "Admin@Example.com", "hash"))
	// second call is a no-op
	require.NoError(t, EnsureAdmin(db, "sqlite", "usr-admin-2", "other@example.com", "hash"))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count))
	assert.Equal(t, 1, count)

	var email string
	require.NoError(t, db.QueryRow("SELECT email FROM users WHERE id = 'usr-admin'").Scan(&email))
	assert.Equal(t, "admin@example.com", email)
}
