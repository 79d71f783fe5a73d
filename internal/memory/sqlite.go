package memory

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the default memory store: one local SQLite file under
// <home>/memory.db with metadata and embedding as JSON text columns.
type SQLiteStore struct {
	DB       *sql.DB
	Path     string
	Embedder Embedder // nil = no embeddings, substring search only
}

// OpenSQLite opens (and migrates) the memory store at <home>/memory.db.
func OpenSQLite(home string, embedder Embedder) (*SQLiteStore, error) {
	if home == "" {
		return nil, errors.New("memory: home directory required")
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(home, "memory.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{DB: db, Path: path, Embedder: embedder}
	if err := s.initPragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQLiteStore) initPragmas(ctx context.Context) error {
	// WAL tolerates the heartbeat process and an interactive run sharing the file.
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at INTEGER NOT NULL
);`); err != nil {
		return err
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	var migs []migration
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		v, err := parseMigrationVersion(f.Name())
		if err != nil {
			return err
		}
		body, err := migrationsFS.ReadFile("migrations/" + f.Name())
		if err != nil {
			return err
		}
		migs = append(migs, migration{Version: v, Name: f.Name(), SQL: string(body)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })

	for _, m := range migs {
		if applied[m.Version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}
	return nil
}

type migration struct {
	Version int
	Name    string
	SQL     string
}

func (s *SQLiteStore) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.Version, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	base := strings.TrimSuffix(filename, ".sql")
	parts := strings.SplitN(base, "_", 2)
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid migration version in %s", filename)
	}
	return v, nil
}

func (s *SQLiteStore) Add(ctx context.Context, kind, text string, metadata map[string]any) (int64, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("memory: marshal metadata: %w", err)
	}
	var embJSON sql.NullString
	if emb := s.embed(ctx, text); emb != nil {
		b, err := json.Marshal(emb)
		if err == nil {
			embJSON = sql.NullString{String: string(b), Valid: true}
		}
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO memories (type, text, metadata, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
		kind, text, string(meta), embJSON, float64(time.Now().UnixNano())/1e9)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// embed computes an embedding for text, or nil when no backend is configured
// or the call fails. Embedding failures are expected, not exceptional.
func (s *SQLiteStore) embed(ctx context.Context, text string) []float64 {
	if s.Embedder == nil {
		return nil
	}
	emb, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		return nil
	}
	return emb
}

func (s *SQLiteStore) All(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, type, text, metadata, embedding, created_at FROM memories ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(rs rowScanner) (Record, error) {
	var (
		r         Record
		meta      sql.NullString
		emb       sql.NullString
		createdAt float64
	)
	if err := rs.Scan(&r.ID, &r.Kind, &r.Text, &meta, &emb, &createdAt); err != nil {
		return Record{}, err
	}
	r.Metadata = map[string]any{}
	if meta.Valid && meta.String != "" {
		_ = json.Unmarshal([]byte(meta.String), &r.Metadata)
	}
	if emb.Valid && emb.String != "" {
		_ = json.Unmarshal([]byte(emb.String), &r.Embedding)
	}
	sec := int64(createdAt)
	r.CreatedAt = time.Unix(sec, int64((createdAt-float64(sec))*1e9))
	return r, nil
}

func (s *SQLiteStore) QuerySimilar(ctx context.Context, text string, topK int) ([]Scored, error) {
	if topK <= 0 {
		topK = 5
	}
	if query := s.embed(ctx, text); query != nil {
		scored, err := s.querySemantic(ctx, query, topK)
		if err == nil && scored != nil {
			return scored, nil
		}
		// Embedding path failed; degrade to substring search.
	}
	return s.querySubstring(ctx, text, topK)
}

func (s *SQLiteStore) querySemantic(ctx context.Context, query []float64, topK int) ([]Scored, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, type, text, metadata, embedding, created_at FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var scored []Scored
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if len(r.Embedding) == 0 {
			continue
		}
		scored = append(scored, Scored{Record: r, Score: CosineSimilarity(query, r.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if scored == nil {
		return nil, nil
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *SQLiteStore) querySubstring(ctx context.Context, text string, topK int) ([]Scored, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, type, text, metadata, embedding, created_at FROM memories`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	q := strings.ToLower(text)
	var out []Scored
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToLower(r.Text), q) {
			out = append(out, Scored{Record: r, Score: 1.0})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *SQLiteStore) RebuildMissingEmbeddings(ctx context.Context, limit int) (int, error) {
	if s.Embedder == nil {
		return 0, nil
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, text FROM memories WHERE embedding IS NULL LIMIT ?`, limit)
	if err != nil {
		return 0, err
	}
	type pending struct {
		id   int64
		text string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.text); err != nil {
			_ = rows.Close()
			return 0, err
		}
		todo = append(todo, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	updated := 0
	for _, p := range todo {
		emb, err := s.Embedder.Embed(ctx, p.text)
		if err != nil || emb == nil {
			continue
		}
		b, err := json.Marshal(emb)
		if err != nil {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, `UPDATE memories SET embedding = ? WHERE id = ?`, string(b), p.id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
