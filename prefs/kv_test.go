package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-redis/redismock/v9"
)

func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("missing key: ok=%v err=%v", ok, err)
	}

	if err := kv.Set(ctx, KeyLanguage, "hi"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, KeyLanguage, "kn"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if v, ok, err := kv.Get(ctx, KeyLanguage); err != nil || !ok || v != "kn" {
		t.Errorf("Get = %q, %v, %v; want kn", v, ok, err)
	}

	if err := kv.Delete(ctx, KeyLanguage); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyLanguage); ok {
		t.Error("key should be gone after Delete")
	}
}

func TestMemoryKV(t *testing.T) {
	testKV(t, NewMemoryKV())
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	testKV(t, kv)

	// Values survive reopening
	kv.Set(context.Background(), "k", "v")
	kv.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if v, ok, _ := reopened.Get(context.Background(), "k"); !ok || v != "v" {
		t.Errorf("value lost across reopen: %q, %v", v, ok)
	}
}

func TestSQLiteKV_InvalidPath(t *testing.T) {
	if _, err := OpenSQLite("/nonexistent/dir/prefs.db"); err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestRedisKV(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	kv := NewRedisKV(db, "u42:")
	ctx := context.Background()

	mock.ExpectSet("u42:"+KeyLanguage, "ta", 0).SetVal("OK")
	mock.ExpectGet("u42:" + KeyLanguage).SetVal("ta")
	mock.ExpectGet("u42:missing").RedisNil()
	mock.ExpectDel("u42:" + KeyLanguage).SetVal(1)
	mock.ExpectGet("u42:broken").SetErr(errors.New("connection refused"))

	if err := kv.Set(ctx, KeyLanguage, "ta"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, ok, err := kv.Get(ctx, KeyLanguage); err != nil || !ok || v != "ta" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
	if _, ok, err := kv.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("missing key: ok=%v err=%v", ok, err)
	}
	if err := kv.Delete(ctx, KeyLanguage); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, _, err := kv.Get(ctx, "broken"); err == nil {
		t.Error("redis errors should be reported")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
