package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Dialect captures what differs between the SQL engines the stores run on.
// Queries are written once with ? placeholders.
type Dialect interface {
	DriverName() string

	// DSN builds the connection string, adding any parameters the
	// repositories depend on (UTC timestamps, foreign keys)
	DSN(config DialectConfig) (string, error)

	RewriteQuery(query string) string

	// MigrationsSubdir names the directory under migrations/ for this engine
	MigrationsSubdir() string

	CreateMigrationsTableQuery() string

	// IsUniqueViolation reports whether err is a unique or primary key
	// constraint failure
	IsUniqueViolation(err error) bool
}

// DialectConfig holds connection settings. Path is used by SQLite, URL by
// PostgreSQL and MySQL.
type DialectConfig struct {
	Path string
	URL  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c DialectConfig) applyPool(db *sql.DB) {
	maxOpen, maxIdle, lifetime := c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime
	if maxOpen == 0 {
		maxOpen = 25
	}
	if maxIdle == 0 {
		maxIdle = 5
	}
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(time.Minute)
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, ...
// leaving question marks inside quoted literals alone.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
