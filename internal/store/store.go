// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists research sessions and every stage's output in
// SQLite. Re-running a stage overwrites or upserts; it never appends
// duplicates. See docs/ARCHITECTURE.md § Session Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// Store manages the research session SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the session database at cfg.Path and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "research-sessions.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			questions TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS moderation_results (
			topic TEXT PRIMARY KEY,
			is_appropriate INTEGER NOT NULL,
			reason TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			session_id TEXT PRIMARY KEY REFERENCES sessions(id),
			result TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			url TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			publication_year TEXT,
			publication_venue TEXT,
			source_type TEXT,
			snippet TEXT,
			full_content TEXT,
			chunk_ids TEXT,
			UNIQUE(session_id, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_session ON sources(session_id)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL REFERENCES sources(id),
			text TEXT NOT NULL,
			start_offset INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id)`,
		`CREATE TABLE IF NOT EXISTS citations (
			session_id TEXT NOT NULL REFERENCES sessions(id),
			style TEXT NOT NULL,
			source_id TEXT NOT NULL,
			formatted TEXT NOT NULL,
			in_text TEXT,
			source_data TEXT,
			PRIMARY KEY(session_id, style, source_id)
		)`,
		`CREATE TABLE IF NOT EXISTS section_plans (
			session_id TEXT NOT NULL REFERENCES sessions(id),
			section TEXT NOT NULL,
			outline TEXT NOT NULL,
			PRIMARY KEY(session_id, section)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateSession inserts a new session record and returns its id.
func (s *Store) CreateSession(ctx context.Context, topic string, questions []string) (string, error) {
	id := uuid.NewString()
	questionsJSON, _ := json.Marshal(questions)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, topic, questions, created_at) VALUES (?, ?, ?, ?)`,
		id, topic, string(questionsJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting session: %w", err)
	}
	return id, nil
}

// GetSession returns the session record, or nil when the id is unknown.
func (s *Store) GetSession(ctx context.Context, id string) (*types.ResearchSession, error) {
	var sess types.ResearchSession
	var questionsJSON, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, questions, created_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Topic, &questionsJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	json.Unmarshal([]byte(questionsJSON), &sess.Questions)
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &sess, nil
}

// GetModerationResult returns the cached verdict for a topic, or nil
// when none is stored.
func (s *Store) GetModerationResult(ctx context.Context, topic string) (*types.ModerationResult, error) {
	var r types.ModerationResult
	var appropriate int
	err := s.db.QueryRowContext(ctx,
		`SELECT topic, is_appropriate, reason FROM moderation_results WHERE topic = ?`, topic,
	).Scan(&r.Topic, &appropriate, &r.Reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying moderation result: %w", err)
	}
	r.IsAppropriate = appropriate != 0
	return &r, nil
}

// StoreModerationResult records the verdict for a topic, replacing any
// previous verdict for the same topic string.
func (s *Store) StoreModerationResult(ctx context.Context, topic string, isAppropriate bool, reason string) error {
	appropriate := 0
	if isAppropriate {
		appropriate = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO moderation_results (topic, is_appropriate, reason) VALUES (?, ?, ?)
		 ON CONFLICT(topic) DO UPDATE SET is_appropriate=excluded.is_appropriate, reason=excluded.reason`,
		topic, appropriate, reason,
	)
	if err != nil {
		return fmt.Errorf("storing moderation result: %w", err)
	}
	return nil
}

// StorePlan records the planning result for a session, overwriting any
// previous plan.
func (s *Store) StorePlan(ctx context.Context, sessionID string, result types.PlanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (session_id, result) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET result=excluded.result`,
		sessionID, string(data),
	)
	if err != nil {
		return fmt.Errorf("storing plan: %w", err)
	}
	return nil
}

// GetPlan returns the stored planning result, or nil when none exists.
func (s *Store) GetPlan(ctx context.Context, sessionID string) (*types.PlanResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM plans WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	var result types.PlanResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &result, nil
}

// StoreSources upserts sources for a session, deduplicated by URL. A
// source whose URL already exists for the session keeps its id and has
// empty fields filled from the new record. Returns the assigned ids in
// input order.
func (s *Store) StoreSources(ctx context.Context, sessionID string, sources []types.AcademicSource) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		var existingID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM sources WHERE session_id = ? AND url = ?`, sessionID, src.URL,
		).Scan(&existingID)

		switch {
		case err == sql.ErrNoRows:
			id := "src-" + uuid.NewString()
			authorsJSON, _ := json.Marshal(src.Authors)
			chunkIDsJSON, _ := json.Marshal(src.ChunkIDs)
			_, err := tx.ExecContext(ctx,
				`INSERT INTO sources (id, session_id, url, title, authors, publication_year,
					publication_venue, source_type, snippet, full_content, chunk_ids)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, sessionID, src.URL, src.Title, string(authorsJSON), src.PublicationYear,
				src.PublicationVenue, string(src.SourceType), src.Snippet, src.FullContent,
				string(chunkIDsJSON),
			)
			if err != nil {
				return nil, fmt.Errorf("inserting source %s: %w", src.URL, err)
			}
			ids = append(ids, id)

		case err != nil:
			return nil, fmt.Errorf("querying source %s: %w", src.URL, err)

		default:
			// URL already known for this session: fill newly available
			// fields, keep the existing id.
			_, err := tx.ExecContext(ctx,
				`UPDATE sources SET
					title = CASE WHEN title = '' THEN ? ELSE title END,
					snippet = CASE WHEN snippet = '' THEN ? ELSE snippet END,
					publication_year = CASE WHEN publication_year = '' THEN ? ELSE publication_year END,
					full_content = CASE WHEN ? != '' THEN ? ELSE full_content END,
					chunk_ids = CASE WHEN ? != '[]' AND ? != 'null' THEN ? ELSE chunk_ids END
				 WHERE id = ?`,
				src.Title, src.Snippet, src.PublicationYear,
				src.FullContent, src.FullContent,
				jsonString(src.ChunkIDs), jsonString(src.ChunkIDs), jsonString(src.ChunkIDs),
				existingID,
			)
			if err != nil {
				return nil, fmt.Errorf("updating source %s: %w", src.URL, err)
			}
			ids = append(ids, existingID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sources: %w", err)
	}
	return ids, nil
}

func jsonString(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// GetSources returns all sources stored for a session.
func (s *Store) GetSources(ctx context.Context, sessionID string) ([]types.AcademicSource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, authors, publication_year, publication_venue,
			source_type, snippet, full_content, chunk_ids
		 FROM sources WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []types.AcademicSource
	for rows.Next() {
		var src types.AcademicSource
		var authorsJSON, chunkIDsJSON, sourceType string
		if err := rows.Scan(&src.ID, &src.URL, &src.Title, &authorsJSON,
			&src.PublicationYear, &src.PublicationVenue, &sourceType,
			&src.Snippet, &src.FullContent, &chunkIDsJSON); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.SourceType = types.SourceType(sourceType)
		json.Unmarshal([]byte(authorsJSON), &src.Authors)
		json.Unmarshal([]byte(chunkIDsJSON), &src.ChunkIDs)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// StoreChunks replaces the stored chunks for a source and returns the
// assigned chunk ids in input order.
func (s *Store) StoreChunks(ctx context.Context, sourceID string, chunks []types.ContentChunk) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID); err != nil {
		return nil, fmt.Errorf("deleting old chunks: %w", err)
	}

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		id := "chk-" + uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, source_id, text, start_offset) VALUES (?, ?, ?, ?)`,
			id, sourceID, c.Text, c.Offset,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk: %w", err)
		}
		ids = append(ids, id)
	}

	// Record the chunk ids on the source row.
	idsJSON, _ := json.Marshal(ids)
	if _, err := tx.ExecContext(ctx,
		`UPDATE sources SET chunk_ids = ? WHERE id = ?`, string(idsJSON), sourceID,
	); err != nil {
		return nil, fmt.Errorf("updating source chunk ids: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chunks: %w", err)
	}
	return ids, nil
}

// GetChunks returns the stored chunks of a source ordered by offset.
func (s *Store) GetChunks(ctx context.Context, sourceID string) ([]types.ContentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, text, start_offset FROM chunks WHERE source_id = ? ORDER BY start_offset`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []types.ContentChunk
	for rows.Next() {
		var c types.ContentChunk
		if err := rows.Scan(&c.ID, &c.SourceID, &c.Text, &c.Offset); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// StoreCitations upserts citations for a session keyed by (style,
// source id). Re-running the citation stage overwrites rather than
// duplicating.
func (s *Store) StoreCitations(ctx context.Context, sessionID string, byStyle map[types.Style][]types.Citation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citations (session_id, style, source_id, formatted, in_text, source_data)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, style, source_id) DO UPDATE SET
			formatted=excluded.formatted, in_text=excluded.in_text, source_data=excluded.source_data`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for style, citations := range byStyle {
		for _, c := range citations {
			sourceData, _ := json.Marshal(c.SourceData)
			if _, err := stmt.ExecContext(ctx,
				sessionID, string(style), c.SourceID, c.Formatted, c.InText, string(sourceData),
			); err != nil {
				return fmt.Errorf("inserting citation %s/%s: %w", style, c.SourceID, err)
			}
		}
	}

	return tx.Commit()
}

// GetCitations returns the stored citations for a session and style.
func (s *Store) GetCitations(ctx context.Context, sessionID string, style types.Style) ([]types.Citation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT style, source_id, formatted, in_text, source_data
		 FROM citations WHERE session_id = ? AND style = ? ORDER BY source_id`,
		sessionID, string(style))
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var citations []types.Citation
	for rows.Next() {
		var c types.Citation
		var styleStr, sourceData string
		if err := rows.Scan(&styleStr, &c.SourceID, &c.Formatted, &c.InText, &sourceData); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		c.Style = types.Style(styleStr)
		json.Unmarshal([]byte(sourceData), &c.SourceData)
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

// StoreSectionPlan records the outline for one section, overwriting any
// previous outline for the same (session, section) pair.
func (s *Store) StoreSectionPlan(ctx context.Context, sessionID, section, outline string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO section_plans (session_id, section, outline) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, section) DO UPDATE SET outline=excluded.outline`,
		sessionID, section, outline,
	)
	if err != nil {
		return fmt.Errorf("storing section plan: %w", err)
	}
	return nil
}

// GetSectionPlan returns the stored outline for a section, or empty
// string when none exists.
func (s *Store) GetSectionPlan(ctx context.Context, sessionID, section string) (string, error) {
	var outline string
	err := s.db.QueryRowContext(ctx,
		`SELECT outline FROM section_plans WHERE session_id = ? AND section = ?`,
		sessionID, section,
	).Scan(&outline)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying section plan: %w", err)
	}
	return outline, nil
}

// GetRelevantChunks returns up to limit chunks from the session's
// sources ranked by term overlap with the section name. Chunks with no
// overlapping terms are excluded.
func (s *Store) GetRelevantChunks(ctx context.Context, sessionID, section string, limit int) ([]types.ContentChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.source_id, c.text, c.start_offset
		 FROM chunks c JOIN sources s ON c.source_id = s.id
		 WHERE s.session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session chunks: %w", err)
	}
	defer rows.Close()

	terms := strings.Fields(strings.ToLower(section))

	type scored struct {
		chunk types.ContentChunk
		score int
	}
	var candidates []scored
	for rows.Next() {
		var c types.ContentChunk
		if err := rows.Scan(&c.ID, &c.SourceID, &c.Text, &c.Offset); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		lower := strings.ToLower(c.Text)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{chunk: c, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	chunks := make([]types.ContentChunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = c.chunk
	}
	return chunks, nil
}
