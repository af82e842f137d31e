package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/lexpdf/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// JobRepository persists jobs through GORM.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Get retrieves a job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job identifier.
//
// Returns:
//   - *domain.Job: job record.
//   - error: ErrJobNotFound if missing, or the query error.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Update applies fn to the stored job inside a transaction holding a row lock,
// then saves the result. If fn returns an error nothing is written.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job identifier.
//   - fn: mutation applied to the current record.
//
// Returns:
//   - *domain.Job: the saved job.
//   - error: ErrJobNotFound, fn's error, or a database error.
func (r *JobRepository) Update(ctx context.Context, id string, fn func(*domain.Job) error) (*domain.Job, error) {
	var saved domain.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job domain.Job
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("id = ?", id).First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		if err := fn(&job); err != nil {
			return err
		}
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		saved = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Delete removes a job record. Deleting a missing job returns ErrJobNotFound.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Job{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListExpired returns terminal jobs that finished before cutoff.
func (r *JobRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	var jobs []domain.Job
	err := r.db.WithContext(ctx).
		Where("status IN ? AND finished_at < ?", []domain.JobStatus{domain.JobStatusFinished, domain.JobStatusFailed}, cutoff).
		Order("finished_at ASC").
		Find(&jobs).Error
	return jobs, err
}
