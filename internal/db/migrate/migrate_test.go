package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func countVersions(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	return n
}

func TestRun_EmbeddedCreatesReadings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := Run(ctx, db); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO readings (id, device_id, temperature, ts) VALUES ('a', 'esp32-1', 21.5, '2025-02-01T12:00:00.000Z')`); err != nil {
		t.Fatalf("insert into readings: %v", err)
	}

	// Second run is a no-op.
	if err := Run(ctx, db); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := countVersions(t, db); got != 1 {
		t.Errorf("applied versions = %d, want 1", got)
	}
}

func TestRunFS_OrderAndIncremental(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/0002_add_b.sql": {Data: []byte(`CREATE TABLE b (id INTEGER REFERENCES a(id));`)},
		"m/0001_add_a.sql": {Data: []byte(`CREATE TABLE a (id INTEGER PRIMARY KEY); INSERT INTO a (id) VALUES (1);`)},
		"m/README.md":      {Data: []byte(`ignored`)},
	}
	if err := RunFS(ctx, db, fsys, "m"); err != nil {
		t.Fatalf("RunFS: %v", err)
	}
	if got := countVersions(t, db); got != 2 {
		t.Fatalf("applied versions = %d, want 2", got)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM a`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("table a rows = %d, err = %v; want 1 row", n, err)
	}

	fsys["m/0003_add_c.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE c (id INTEGER);`)}
	if err := RunFS(ctx, db, fsys, "m"); err != nil {
		t.Fatalf("RunFS incremental: %v", err)
	}
	if got := countVersions(t, db); got != 3 {
		t.Errorf("applied versions = %d, want 3", got)
	}
}

func TestRunFS_FailedMigrationNotRecorded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/0001_ok.sql":     {Data: []byte(`CREATE TABLE ok (id INTEGER);`)},
		"m/0002_broken.sql": {Data: []byte(`CREATE TABLE broken (id INTEGER); THIS IS NOT SQL;`)},
	}
	if err := RunFS(ctx, db, fsys, "m"); err == nil {
		t.Fatal("RunFS: expected error for broken migration")
	}
	if got := countVersions(t, db); got != 1 {
		t.Errorf("applied versions = %d, want 1", got)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'broken'`).Scan(&n); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if n != 0 {
		t.Error("broken migration left table behind; expected rollback")
	}
}

func TestRunFS_DuplicateVersion(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte(`SELECT 1;`)},
		"m/0001_b.sql": {Data: []byte(`SELECT 1;`)},
	}
	if err := RunFS(context.Background(), db, fsys, "m"); err == nil {
		t.Fatal("RunFS: expected duplicate version error")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{in: "0001_readings.sql", wantVersion: "0001", wantName: "readings", wantOK: true},
		{in: "0420_add_index.sql", wantVersion: "0420", wantName: "add_index", wantOK: true},
		{in: "1_short.sql", wantOK: false},
		{in: "0001_readings.txt", wantOK: false},
		{in: "readings.sql", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseMigrationFilename(tt.in)
			if ok != tt.wantOK || v != tt.wantVersion || n != tt.wantName {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, v, n, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}
