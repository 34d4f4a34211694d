// Package ch provides a clickhouse client over clickhouse-go v2
package ch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"scorekeeper/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL string

	// Role and Tag are reported to the server as client info
	Role string
	Tag  string
}

// Conn is the subset of driver.Conn the client uses
type Conn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Ping(ctx context.Context) error
	Close() error
}

// CH is a clickhouse client
type CH struct {
	conn Conn
}

// seam for tests
var openConn = func(opt *clickhouse.Options) (Conn, error) { return clickhouse.Open(opt) }

// Open parses the DSN and returns a lazily connecting client
func Open(_ context.Context, cfg Config) (*CH, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("ch: empty url")
	}
	opt, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opt.ClientInfo = clientInfo(cfg.Role, cfg.Tag)
	conn, err := openConn(opt)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	return &CH{conn: conn}, nil
}

// New wraps an existing connection
func New(conn Conn) *CH { return &CH{conn: conn} }

// Insert appends rows to table in one batch
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: not connected")
	}
	if len(rows) == 0 {
		return nil
	}
	b, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			_ = b.Abort()
			return err
		}
	}
	return b.Send()
}

// Ping checks connectivity
func (c *CH) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: not connected")
	}
	return c.conn.Ping(ctx)
}

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// clientInfo names this process in the server's query log
// an empty tag falls back to the build version
func clientInfo(role, tag string) clickhouse.ClientInfo {
	bi := version.Info("scorekeeper")
	if tag = strings.TrimSpace(tag); tag == "" {
		tag = bi.Version
	}
	host, _ := os.Hostname()
	var info clickhouse.ClientInfo
	for _, p := range [][2]string{
		{bi.Service, tag},
		{"role", strings.TrimSpace(role)},
		{"commit", bi.Commit},
		{"host", host},
	} {
		info.Products = append(info.Products, struct{ Name, Version string }{p[0], p[1]})
	}
	return info
}
