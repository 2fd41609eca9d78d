package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "inkd/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "history.jsonl")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := RefreshRecord{
			At:          base.Add(time.Duration(i) * time.Hour),
			Trigger:     "periodic",
			Action:      "playlist",
			Plugin:      fmt.Sprintf("plugin-%d", i),
			Fingerprint: fmt.Sprintf("%016x", i),
			Painted:     i%2 == 0,
			TookMS:      int64(100 + i),
		}
		if err := st.AppendRefresh(ctx, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recs, err := st.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	// newest first
	if recs[0].Plugin != "plugin-4" || recs[2].Plugin != "plugin-2" {
		t.Fatalf("wrong order: %q .. %q", recs[0].Plugin, recs[2].Plugin)
	}
	if !recs[0].Painted || !recs[0].At.Equal(base.Add(4*time.Hour)) {
		t.Fatalf("record fields lost: %+v", recs[0])
	}
	if recs[1].Painted {
		t.Fatalf("record fields lost: %+v", recs[1])
	}
}

func TestRecentZero(t *testing.T) {
	st := openTestStore(t)
	recs, err := st.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recs != nil {
		t.Fatalf("expected nil, got %d records", len(recs))
	}
}

func TestTornTailIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := st.AppendRefresh(ctx, RefreshRecord{Trigger: "manual", Action: "clear"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	st.Close()

	// Simulate a crash mid-write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString(`{"at":"2026-08-`); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	recs, err := st2.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].Action != "clear" {
		t.Fatalf("torn tail corrupted history: %+v", recs)
	}
}

func TestCompactCapsHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	total := fileMaxRecords + fileCompactEvery
	for i := 0; i < total; i++ {
		rec := RefreshRecord{At: time.Now(), Trigger: "periodic", Action: "playlist", TookMS: int64(i)}
		if err := st.AppendRefresh(ctx, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	recs, err := st.Recent(ctx, total)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) > fileMaxRecords {
		t.Fatalf("history not compacted: %d records", len(recs))
	}
	// The newest record must survive compaction.
	if recs[0].TookMS != int64(total-1) {
		t.Fatalf("newest record lost: %+v", recs[0])
	}
}
