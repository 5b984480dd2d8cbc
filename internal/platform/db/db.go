package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const driverName = "mysql"

// DSN builds the driver DSN. parseTime が無いと DATETIME を time.Time で受けられない。
func (c DatabaseConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.DBName
	mc.ParseTime = true
	// UPDATE の RowsAffected を「一致行数」にする（値が同じでも 1 が返る）
	mc.ClientFoundRows = true
	mc.Loc = time.UTC
	mc.Timeout = 3 * time.Second
	mc.ReadTimeout = 5 * time.Second
	mc.WriteTimeout = 5 * time.Second
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Connect opens the single *sql.DB used by every service for the process lifetime.
func Connect(ctx context.Context, c DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, c.DSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
