package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id             BIGSERIAL PRIMARY KEY,
	token          TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL,
	backend        TEXT NOT NULL,
	language       TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL,
	audio_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
	processing_sec DOUBLE PRECISION NOT NULL DEFAULT 0,
	segment_count  INTEGER NOT NULL DEFAULT 0,
	txt_file       TEXT NOT NULL DEFAULT '',
	srt_file       TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at ON transcriptions (created_at DESC);
`

func (db *DB) ensureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, schema)
	return err
}

// TranscriptionRecord is a persisted transcription run.
type TranscriptionRecord struct {
	ID            int64     `json:"id"`
	Token         string    `json:"token"`
	Title         string    `json:"title,omitempty"`
	Model         string    `json:"model"`
	Backend       string    `json:"backend"`
	Language      string    `json:"language,omitempty"`
	Text          string    `json:"text"`
	AudioDuration float64   `json:"audio_duration,omitempty"`
	ProcessingSec float64   `json:"processing_sec"`
	SegmentCount  int       `json:"segment_count"`
	TxtFile       string    `json:"txt_file,omitempty"`
	SrtFile       string    `json:"srt_file,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// InsertTranscription stores a finished run and returns its ID.
func (db *DB) InsertTranscription(ctx context.Context, rec *TranscriptionRecord) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO transcriptions
			(token, title, model, backend, language, text,
			 audio_duration, processing_sec, segment_count, txt_file, srt_file)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`,
		rec.Token, rec.Title, rec.Model, rec.Backend, rec.Language, rec.Text,
		rec.AudioDuration, rec.ProcessingSec, rec.SegmentCount, rec.TxtFile, rec.SrtFile,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListTranscriptions returns a page of records, newest first, plus the total count.
func (db *DB) ListTranscriptions(ctx context.Context, limit, offset int) ([]TranscriptionRecord, int, error) {
	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM transcriptions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, token, title, model, backend, language, text,
		       audio_duration, processing_sec, segment_count, txt_file, srt_file, created_at
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []TranscriptionRecord
	for rows.Next() {
		var r TranscriptionRecord
		if err := rows.Scan(
			&r.ID, &r.Token, &r.Title, &r.Model, &r.Backend, &r.Language, &r.Text,
			&r.AudioDuration, &r.ProcessingSec, &r.SegmentCount, &r.TxtFile, &r.SrtFile, &r.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// GetTranscription returns one record, or nil if it doesn't exist.
func (db *DB) GetTranscription(ctx context.Context, id int64) (*TranscriptionRecord, error) {
	var r TranscriptionRecord
	err := db.Pool.QueryRow(ctx, `
		SELECT id, token, title, model, backend, language, text,
		       audio_duration, processing_sec, segment_count, txt_file, srt_file, created_at
		FROM transcriptions WHERE id = $1`, id,
	).Scan(
		&r.ID, &r.Token, &r.Title, &r.Model, &r.Backend, &r.Language, &r.Text,
		&r.AudioDuration, &r.ProcessingSec, &r.SegmentCount, &r.TxtFile, &r.SrtFile, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteTranscription removes a record, reporting whether it existed.
func (db *DB) DeleteTranscription(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM transcriptions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
