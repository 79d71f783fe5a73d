package postgres

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/loteknowledG/samus-manus/internal/memory"
)

func (s *Store) Add(ctx context.Context, kind, text string, metadata map[string]any) (int64, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return 0, err
	}
	var embJSON []byte
	if emb := s.embed(ctx, text); emb != nil {
		if b, err := json.Marshal(emb); err == nil {
			embJSON = b
		}
	}
	var id int64
	err = s.Pool.QueryRow(ctx,
		`INSERT INTO memories (type, text, metadata, embedding, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		kind, text, meta, embJSON, float64(time.Now().UnixNano())/1e9).Scan(&id)
	return id, err
}

func (s *Store) embed(ctx context.Context, text string) []float64 {
	if s.Embedder == nil {
		return nil
	}
	emb, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		return nil
	}
	return emb
}

func (s *Store) All(ctx context.Context, limit int) ([]memory.Record, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, type, text, metadata, embedding, created_at FROM memories ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]memory.Record, error) {
	var out []memory.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(rows pgx.Rows) (memory.Record, error) {
	var (
		r         memory.Record
		meta      []byte
		emb       []byte
		createdAt float64
	)
	if err := rows.Scan(&r.ID, &r.Kind, &r.Text, &meta, &emb, &createdAt); err != nil {
		return memory.Record{}, err
	}
	r.Metadata = map[string]any{}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &r.Metadata)
	}
	if len(emb) > 0 {
		_ = json.Unmarshal(emb, &r.Embedding)
	}
	sec := int64(createdAt)
	r.CreatedAt = time.Unix(sec, int64((createdAt-float64(sec))*1e9))
	return r, nil
}

func (s *Store) QuerySimilar(ctx context.Context, text string, topK int) ([]memory.Scored, error) {
	if topK <= 0 {
		topK = 5
	}
	if query := s.embed(ctx, text); query != nil {
		scored, err := s.querySemantic(ctx, query, topK)
		if err == nil && scored != nil {
			return scored, nil
		}
	}
	return s.querySubstring(ctx, text, topK)
}

func (s *Store) querySemantic(ctx context.Context, query []float64, topK int) ([]memory.Scored, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, type, text, metadata, embedding, created_at FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []memory.Scored
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if len(r.Embedding) == 0 {
			continue
		}
		scored = append(scored, memory.Scored{Record: r, Score: memory.CosineSimilarity(query, r.Embedding)})
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

func (s *Store) querySubstring(ctx context.Context, text string, topK int) ([]memory.Scored, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, type, text, metadata, embedding, created_at FROM memories WHERE text ILIKE '%' || $1 || '%' LIMIT $2`,
		text, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []memory.Scored
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, memory.Scored{Record: r, Score: 1.0})
	}
	return out, rows.Err()
}

func (s *Store) RebuildMissingEmbeddings(ctx context.Context, limit int) (int, error) {
	if s.Embedder == nil {
		return 0, nil
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, text FROM memories WHERE embedding IS NULL LIMIT $1`, limit)
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
			rows.Close()
			return 0, err
		}
		todo = append(todo, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

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
		if _, err := s.Pool.Exec(ctx, `UPDATE memories SET embedding = $1 WHERE id = $2`, b, p.id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
