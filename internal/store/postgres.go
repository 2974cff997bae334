package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ponyvote/ballotcheck/internal/model"
)

const (
	maxConnectAttempts = 5
	connectRetryDelay  = 2 * time.Second
)

// Schema creates the tables the Postgres store needs. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS video_metadata (
	id          TEXT        NOT NULL,
	platform    TEXT        NOT NULL,
	title       TEXT        NOT NULL,
	uploader    TEXT        NOT NULL,
	uploader_id TEXT        NOT NULL,
	thumbnail   TEXT        NOT NULL DEFAULT '',
	upload_date TIMESTAMPTZ NOT NULL,
	duration    INTEGER,
	source      TEXT        NOT NULL DEFAULT '',
	recent      BOOLEAN     NOT NULL DEFAULT false,
	whitelisted BOOLEAN     NOT NULL DEFAULT false,
	PRIMARY KEY (id, platform)
);

CREATE TABLE IF NOT EXISTS manual_label (
	video_id TEXT NOT NULL,
	platform TEXT NOT NULL,
	label    TEXT NOT NULL,
	content  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (video_id, platform)
);

CREATE TABLE IF NOT EXISTS label_config (
	trigger TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	type    TEXT NOT NULL,
	details TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ballot_item (
	user_id       TEXT        NOT NULL,
	index         INTEGER     NOT NULL,
	video_id      TEXT        NOT NULL,
	platform      TEXT        NOT NULL,
	creation_date TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, index)
);
`

// NewPool connects with retries; the database may still be starting
func NewPool(ctx context.Context, databaseURL string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				logger.Info().Msg("database connected")
				return pool, nil
			} else {
				pool.Close()
				err = pingErr
			}
		}

		logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", maxConnectAttempts).Msg("database connection failed")
		if attempt < maxConnectAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxConnectAttempts, err)
}

var _ Store = (*Postgres)(nil)

// Postgres is a Store backed by a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool. Call Migrate once before use on a fresh database.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies Schema
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const metadataColumns = `id, platform, title, uploader, uploader_id, thumbnail, upload_date, duration, source, recent, whitelisted`

func scanMetadata(row pgx.Row, extra ...any) (model.VideoMetadata, error) {
	var v model.VideoMetadata
	var platform string
	dest := []any{
		&v.Ref.ID, &platform, &v.Title, &v.Uploader, &v.UploaderID, &v.Thumbnail,
		&v.UploadDate, &v.Duration, &v.Source, &v.Recent, &v.Whitelisted,
	}
	err := row.Scan(append(dest, extra...)...)
	v.Ref.Platform = model.Platform(platform)
	return v, err
}

func (p *Postgres) GetMetadata(ctx context.Context, ref model.VideoRef) (*model.VideoMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM video_metadata WHERE id = $1 AND platform = $2`

	v, err := scanMetadata(p.pool.QueryRow(ctx, query, ref.ID, string(ref.Platform)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p *Postgres) PutMetadata(ctx context.Context, v model.VideoMetadata) error {
	query := `
		INSERT INTO video_metadata (` + metadataColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id, platform) DO NOTHING`

	_, err := p.pool.Exec(ctx, query,
		v.Ref.ID, string(v.Ref.Platform), v.Title, v.Uploader, v.UploaderID, v.Thumbnail,
		v.UploadDate, v.Duration, v.Source, v.Recent, v.Whitelisted,
	)
	return err
}

func (p *Postgres) DeleteMetadata(ctx context.Context, ref model.VideoRef) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM video_metadata WHERE id = $1 AND platform = $2`, ref.ID, string(ref.Platform))
	return err
}

func (p *Postgres) SetSource(ctx context.Context, ref model.VideoRef, source string) error {
	return p.updateVideo(ctx, ref, `UPDATE video_metadata SET source = $3 WHERE id = $1 AND platform = $2`, source)
}

func (p *Postgres) SetWhitelisted(ctx context.Context, ref model.VideoRef, whitelisted bool) error {
	return p.updateVideo(ctx, ref, `UPDATE video_metadata SET whitelisted = $3 WHERE id = $1 AND platform = $2`, whitelisted)
}

func (p *Postgres) updateVideo(ctx context.Context, ref model.VideoRef, query string, value any) error {
	tag, err := p.pool.Exec(ctx, query, ref.ID, string(ref.Platform), value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", ref, ErrNotFound)
	}
	return nil
}

func (p *Postgres) GetManualLabel(ctx context.Context, ref model.VideoRef) (*model.ManualLabel, error) {
	query := `SELECT label, content FROM manual_label WHERE video_id = $1 AND platform = $2`

	var label model.ManualLabel
	var kind string
	err := p.pool.QueryRow(ctx, query, ref.ID, string(ref.Platform)).Scan(&kind, &label.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	label.Kind = model.LabelKind(kind)
	return &label, nil
}

func (p *Postgres) PutManualLabel(ctx context.Context, ref model.VideoRef, label model.ManualLabel) error {
	query := `
		INSERT INTO manual_label (video_id, platform, label, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id, platform) DO UPDATE SET label = EXCLUDED.label, content = EXCLUDED.content`

	_, err := p.pool.Exec(ctx, query, ref.ID, string(ref.Platform), string(label.Kind), label.Content)
	return err
}

func (p *Postgres) DeleteManualLabel(ctx context.Context, ref model.VideoRef) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM manual_label WHERE video_id = $1 AND platform = $2`, ref.ID, string(ref.Platform))
	return err
}

func (p *Postgres) GetLabelConfig(ctx context.Context) ([]model.Flag, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, type, details, trigger FROM label_config ORDER BY trigger`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []model.Flag
	for rows.Next() {
		var f model.Flag
		var typ string
		if err := rows.Scan(&f.Name, &typ, &f.Details, &f.Trigger); err != nil {
			return nil, err
		}
		f.Type = model.FlagType(typ)
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (p *Postgres) PutLabelConfig(ctx context.Context, rows []model.Flag) error {
	query := `
		INSERT INTO label_config (trigger, name, type, details)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trigger) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type, details = EXCLUDED.details`

	batch := &pgx.Batch{}
	for _, f := range rows {
		batch.Queue(query, f.Trigger, f.Name, string(f.Type), f.Details)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save label config: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) GetBallotItems(ctx context.Context, userID string, since time.Time) ([]model.BallotItem, error) {
	query := `
		SELECT user_id, index, video_id, platform, creation_date
		FROM ballot_item
		WHERE user_id = $1 AND creation_date >= $2
		ORDER BY index`

	rows, err := p.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.BallotItem
	for rows.Next() {
		var it model.BallotItem
		var platform string
		if err := rows.Scan(&it.UserID, &it.Index, &it.Ref.ID, &platform, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.Ref.Platform = model.Platform(platform)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *Postgres) PutBallotItem(ctx context.Context, it model.BallotItem) error {
	query := `
		INSERT INTO ballot_item (user_id, index, video_id, platform, creation_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, index) DO UPDATE
		SET video_id = EXCLUDED.video_id, platform = EXCLUDED.platform, creation_date = EXCLUDED.creation_date`

	_, err := p.pool.Exec(ctx, query, it.UserID, it.Index, it.Ref.ID, string(it.Ref.Platform), it.CreatedAt)
	return err
}

func (p *Postgres) DeleteBallotItem(ctx context.Context, userID string, index int) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM ballot_item WHERE user_id = $1 AND index = $2`, userID, index)
	return err
}

func (p *Postgres) TopVideos(ctx context.Context, limit int) ([]VideoCount, error) {
	if limit <= 0 {
		limit = DefaultPoolSize
	}

	query := `
		SELECT v.id, v.platform, v.title, v.uploader, v.uploader_id, v.thumbnail, v.upload_date,
		       v.duration, v.source, v.recent, v.whitelisted,
		       m.label, m.content, count(b.user_id) AS votes
		FROM video_metadata v
		LEFT JOIN ballot_item b ON b.video_id = v.id AND b.platform = v.platform
		LEFT JOIN manual_label m ON m.video_id = v.id AND m.platform = v.platform
		GROUP BY v.id, v.platform, m.label, m.content
		ORDER BY votes DESC, v.id, v.platform
		LIMIT $1`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VideoCount
	for rows.Next() {
		var kind, content *string
		var votes int
		meta, err := scanMetadata(rows, &kind, &content, &votes)
		if err != nil {
			return nil, err
		}
		vc := VideoCount{Metadata: meta, Votes: votes}
		if kind != nil {
			vc.Manual = &model.ManualLabel{Kind: model.LabelKind(*kind)}
			if content != nil {
				vc.Manual.Content = *content
			}
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

func (p *Postgres) SearchTitles(ctx context.Context, query string, since time.Time, limit int) ([]model.VideoMetadata, error) {
	q := `
		SELECT ` + metadataColumns + `
		FROM video_metadata
		WHERE whitelisted AND upload_date >= $1 AND strpos(lower(title), lower($2)) > 0
		ORDER BY upload_date DESC, id, platform`
	args := []any{since, query}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VideoMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
