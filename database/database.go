package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"floordesign/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DB is the process-wide connection pool set by Initialize.
var DB *sql.DB
var dbType string

// Initialize opens the global pool and creates the schema.
// driver: "sqlite", "mysql" or "postgres"; dsn: file path or server DSN.
func Initialize(driver, dsn string) error {
	db, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	DB = db
	dbType = normalizeDriver(driver)

	logger.Info("Database initialized successfully (%s)", dbType)
	return nil
}

// Driver returns the normalized driver of the global pool.
func Driver() string {
	return dbType
}

// Open connects, pings and migrates a database without touching the global pool.
func Open(driver, dsn string) (*sql.DB, error) {
	driver = normalizeDriver(driver)
	if dsn == "" && driver == DriverSQLite {
		dsn = "./floordesign.db"
	}

	db, err := sql.Open(sqlDriverName(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer; also keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := createTables(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return strings.ToLower(driver)
	}
}

func sqlDriverName(driver string) string {
	if driver == DriverPostgres {
		return "pgx"
	}
	return driver
}

// Rebind rewrites '?' placeholders into the driver's native form.
func Rebind(driver, query string) string {
	if normalizeDriver(driver) != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func autoIncrementPK(driver string) string {
	switch driver {
	case DriverMySQL:
		return "BIGINT AUTO_INCREMENT PRIMARY KEY"
	case DriverPostgres:
		return "BIGSERIAL PRIMARY KEY"
	default:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

func tableOptions(driver string) string {
	if driver == DriverMySQL {
		return " CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"
	}
	return ""
}

// createTables creates the schema for the given driver.
func createTables(db *sql.DB, driver string) error {
	opts := tableOptions(driver)
	serial := autoIncrementPK(driver)

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(50) PRIMARY KEY,
			email VARCHAR(191) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			image TEXT,
			phone VARCHAR(50),
			address TEXT,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT ''
		)` + opts,

		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(191) UNIQUE NOT NULL,
			slug VARCHAR(191) UNIQUE NOT NULL,
			image TEXT NOT NULL,
			description TEXT NOT NULL,
			categories TEXT NOT NULL,
			price VARCHAR(32) NOT NULL,
			motifs TEXT NOT NULL,
			created_by VARCHAR(50),
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT ''
		)` + opts,

		`CREATE TABLE IF NOT EXISTS product_categories (
			product_id VARCHAR(50) NOT NULL,
			category VARCHAR(32) NOT NULL,
			PRIMARY KEY (product_id, category),
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		)` + opts,

		`CREATE TABLE IF NOT EXISTS user_likes (
			user_id VARCHAR(50) NOT NULL,
			product_id VARCHAR(50) NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, product_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		)` + opts,

		`CREATE TABLE IF NOT EXISTS conversations (
			user_id VARCHAR(50) PRIMARY KEY,
			last_updated VARCHAR(50) NOT NULL DEFAULT '',
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)` + opts,

		`CREATE TABLE IF NOT EXISTS messages (
			seq ` + serial + `,
			id VARCHAR(50) UNIQUE NOT NULL,
			user_id VARCHAR(50) NOT NULL,
			sender VARCHAR(10) NOT NULL,
			content TEXT NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			FOREIGN KEY (user_id) REFERENCES conversations(user_id) ON DELETE CASCADE
		)` + opts,

		`CREATE TABLE IF NOT EXISTS palette_colors (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(191) UNIQUE NOT NULL,
			hex VARCHAR(7) NOT NULL
		)` + opts,

		`CREATE TABLE IF NOT EXISTS admin_activity_logs (
			id ` + serial + `,
			admin_id VARCHAR(50) NOT NULL,
			username VARCHAR(255) NOT NULL,
			action VARCHAR(100) NOT NULL,
			details TEXT,
			created_at VARCHAR(50) NOT NULL DEFAULT ''
		)` + opts,
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_product_categories_category ON product_categories(category)`,
		`CREATE INDEX IF NOT EXISTS idx_user_likes_product ON user_likes(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_activity_created ON admin_activity_logs(created_at)`,
	}

	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}

	for _, stmt := range indexes {
		if driver == DriverMySQL {
			// MySQL has no CREATE INDEX IF NOT EXISTS
			stmt = strings.Replace(stmt, " IF NOT EXISTS", "", 1)
		}
		if _, err := db.Exec(stmt); err != nil {
			if driver == DriverMySQL && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}

	return nil
}

// EnsureAdmin seeds an admin account when no admin exists yet.
func EnsureAdmin(db *sql.DB, driver, id, email, passwordHash string) error {
	var count int
	if err := db.QueryRow(Rebind(driver, "SELECT COUNT(*) FROM users WHERE role = ?"), "admin").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := db.Exec(Rebind(driver, `
		INSERT INTO users (id, email, password, name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, strings.ToLower(strings.TrimSpace(email)), passwordHash, "Administrateur", "admin", now, now,
	)
	if err != nil {
		return err
	}

	logger.Info("Default admin created (email: %s)", email)
	return nil
}

// Close releases the global pool.
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
