package facecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-finder/internal/config"
	"github.com/kozaktomas/face-finder/internal/facematch"
	"github.com/kozaktomas/face-finder/internal/imaging"
)

// cropJPEGQuality keeps stored crops close to the original pixels.
const cropJPEGQuality = 95

// Postgres persists observations in PostgreSQL with pgvector embeddings.
type Postgres struct {
	db *sql.DB
}

var _ Cache = (*Postgres)(nil)

// OpenPostgres connects, verifies the connection and applies migrations.
func OpenPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*Postgres, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return p, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (*facematch.Observation, bool, error) {
	var (
		noFace   bool
		vec      pgvector.Vector
		quality  float64
		bboxArea int
		crop     []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT no_face, COALESCE(embedding, '[0]'::vector), quality, bbox_area, crop_jpeg
		FROM face_cache WHERE image_url = $1
	`, key).Scan(&noFace, &vec, &quality, &bboxArea, &crop)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query face cache: %w", err)
	}
	if noFace {
		return nil, true, nil
	}

	obs := &facematch.Observation{
		Embedding:       vec.Slice(),
		Quality:         quality,
		BoundingBoxArea: bboxArea,
	}
	if len(crop) > 0 {
		img, err := imaging.Decode(crop)
		if err != nil {
			return nil, false, fmt.Errorf("decode cached crop: %w", err)
		}
		obs.Crop = img
	}
	return obs, true, nil
}

func (p *Postgres) Put(ctx context.Context, key string, obs *facematch.Observation) error {
	if obs == nil {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO face_cache (image_url, no_face)
			VALUES ($1, TRUE)
			ON CONFLICT (image_url) DO UPDATE SET
				no_face = TRUE, embedding = NULL, quality = 0, bbox_area = 0, crop_jpeg = NULL, updated_at = NOW()
		`, key)
		if err != nil {
			return fmt.Errorf("store no-face entry: %w", err)
		}
		return nil
	}

	var crop []byte
	if obs.Crop != nil {
		data, err := imaging.EncodeJPEG(obs.Crop, cropJPEGQuality)
		if err != nil {
			return fmt.Errorf("encode crop: %w", err)
		}
		crop = data
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO face_cache (image_url, no_face, embedding, quality, bbox_area, crop_jpeg)
		VALUES ($1, FALSE, $2::vector, $3, $4, $5)
		ON CONFLICT (image_url) DO UPDATE SET
			no_face = FALSE, embedding = EXCLUDED.embedding, quality = EXCLUDED.quality,
			bbox_area = EXCLUDED.bbox_area, crop_jpeg = EXCLUDED.crop_jpeg, updated_at = NOW()
	`, key, pgvector.NewVector(obs.Embedding), obs.Quality, obs.BoundingBoxArea, crop)
	if err != nil {
		return fmt.Errorf("store face entry: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
