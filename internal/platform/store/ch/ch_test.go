package ch

import (
	"context"
	"errors"
	"testing"

	"scorekeeper/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// fakeBatch embeds driver.Batch so only the methods Insert touches need bodies
type fakeBatch struct {
	driver.Batch
	rows    [][]any
	sent    bool
	aborted bool
	failOn  int
}

func (b *fakeBatch) Append(v ...any) error {
	if b.failOn > 0 && len(b.rows)+1 == b.failOn {
		return errors.New("append failed")
	}
	b.rows = append(b.rows, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

type fakeConn struct {
	batch   *fakeBatch
	query   string
	pingErr error
	closed  bool
}

func (c *fakeConn) PrepareBatch(_ context.Context, q string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.query = q
	return c.batch, nil
}
func (c *fakeConn) Ping(context.Context) error { return c.pingErr }
func (c *fakeConn) Close() error               { c.closed = true; return nil }

func TestOpen_RejectsEmptyURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestOpen_SetsClientInfo(t *testing.T) {
	testkit.Serial(t)
	var got *clickhouse.Options
	testkit.Swap(t, &openConn, func(opt *clickhouse.Options) (Conn, error) {
		got = opt
		return &fakeConn{}, nil
	})
	cl, err := Open(context.Background(), Config{URL: "clickhouse://127.0.0.1:9000/default", Role: "api", Tag: "v1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if cl == nil || got == nil {
		t.Fatalf("expected client and options")
	}
	if len(got.ClientInfo.Products) == 0 || got.ClientInfo.Products[1].Version != "api" {
		t.Fatalf("client info not applied: %+v", got.ClientInfo)
	}
}

func TestInsert_AppendsAndSends(t *testing.T) {
	fc := &fakeConn{batch: &fakeBatch{}}
	cl := New(fc)
	rows := [][]any{{"a", 1}, {"b", 2}}
	if err := cl.Insert(context.Background(), "events", rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fc.query != "INSERT INTO events" {
		t.Fatalf("query = %q", fc.query)
	}
	if len(fc.batch.rows) != 2 || !fc.batch.sent {
		t.Fatalf("batch not sent: %+v", fc.batch)
	}
}

func TestInsert_AbortsOnAppendError(t *testing.T) {
	fc := &fakeConn{batch: &fakeBatch{failOn: 2}}
	cl := New(fc)
	err := cl.Insert(context.Background(), "events", [][]any{{1}, {2}})
	if err == nil {
		t.Fatalf("expected append error")
	}
	if !fc.batch.aborted || fc.batch.sent {
		t.Fatalf("expected abort without send: %+v", fc.batch)
	}
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	fc := &fakeConn{}
	if err := New(fc).Insert(context.Background(), "events", nil); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
	if fc.query != "" {
		t.Fatalf("empty insert should not prepare a batch")
	}
}

func TestNilClient_Errors(t *testing.T) {
	var cl *CH
	if err := cl.Insert(context.Background(), "t", [][]any{{1}}); err == nil {
		t.Fatalf("nil Insert should error")
	}
	if err := cl.Ping(context.Background()); err == nil {
		t.Fatalf("nil Ping should error")
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("nil Close should be a no-op: %v", err)
	}
}

func TestPingAndClose_Delegate(t *testing.T) {
	fc := &fakeConn{pingErr: errors.New("down")}
	cl := New(fc)
	if err := cl.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	_ = cl.Close()
	if !fc.closed {
		t.Fatalf("Close not delegated")
	}
}
