package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kavinb/docshorts/internal/models"
)

func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (
			id, job_id, name, file_path, duration_seconds
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		video.ID, video.JobID, video.Name, video.FilePath, video.Duration,
	).Scan(&video.CreatedAt)
}

func (db *DB) GetVideoByName(ctx context.Context, name string) (*models.Video, error) {
	query := `
		SELECT id, job_id, name, file_path, duration_seconds, created_at
		FROM videos
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	video := &models.Video{}
	err := db.QueryRowContext(ctx, query, name).Scan(
		&video.ID, &video.JobID, &video.Name, &video.FilePath,
		&video.Duration, &video.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

func (db *DB) ListVideos(ctx context.Context) ([]models.Video, error) {
	query := `
		SELECT id, job_id, name, file_path, duration_seconds, created_at
		FROM videos
		ORDER BY created_at DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var video models.Video
		err := rows.Scan(
			&video.ID, &video.JobID, &video.Name, &video.FilePath,
			&video.Duration, &video.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	return videos, nil
}
