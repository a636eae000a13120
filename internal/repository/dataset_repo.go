package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"insightchat-backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type DatasetRepo struct {
	pool *pgxpool.Pool
}

func NewDatasetRepo(pool *pgxpool.Pool) *DatasetRepo {
	return &DatasetRepo{pool: pool}
}

func (r *DatasetRepo) Create(ctx context.Context, d *models.Dataset, records []models.Record) error {
	d.ID = uuid.New()
	d.RowCount = len(records)

	rows, err := encodeRows(records)
	if err != nil {
		return err
	}

	query := `INSERT INTO datasets (id, user_id, name, rows, row_count)
		VALUES ($1, $2, $3, $4::json, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, d.ID, d.UserID, d.Name, rows, d.RowCount).Scan(&d.CreatedAt)
}

func (r *DatasetRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Dataset, error) {
	d := &models.Dataset{}
	query := `SELECT id, user_id, name, row_count, created_at FROM datasets WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&d.ID, &d.UserID, &d.Name, &d.RowCount, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// FetchRecords loads the stored rows. A missing dataset is reported as
// unavailable (nil, nil) rather than an error.
func (r *DatasetRepo) FetchRecords(ctx context.Context, userID, fileID uuid.UUID) ([]models.Record, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT rows::text FROM datasets WHERE id = $1 AND user_id = $2`, fileID, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	return decodeRows(raw)
}

func (r *DatasetRepo) SaveAnalysis(ctx context.Context, userID uuid.UUID, ins *models.DatasetInsights) error {
	data, err := json.Marshal(ins)
	if err != nil {
		return fmt.Errorf("encode insights: %w", err)
	}

	query := `INSERT INTO dataset_analyses (file_id, user_id, insights, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_id) DO UPDATE SET insights = EXCLUDED.insights, generated_at = EXCLUDED.generated_at`

	_, err = r.pool.Exec(ctx, query, ins.FileID, userID, data, ins.GeneratedAt)
	return err
}

func (r *DatasetRepo) GetAnalysis(ctx context.Context, userID, fileID uuid.UUID) (*models.DatasetInsights, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT insights FROM dataset_analyses WHERE file_id = $1 AND user_id = $2`,
		fileID, userID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	ins := &models.DatasetInsights{}
	if err := json.Unmarshal(data, ins); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	return ins, nil
}

func encodeRows(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return data, nil
}

func decodeRows(raw []byte) ([]models.Record, error) {
	var records []models.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return records, nil
}
