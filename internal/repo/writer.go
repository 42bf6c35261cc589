package repo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mpetrenko/hh-scout/internal/domain"
	"github.com/mpetrenko/hh-scout/internal/metrics"
)

// Table names accepted by Writer.InsertRecords.
const (
	TableEmployers = "employers"
	TableVacancies = "vacancies"
)

// Writer persists normalized records with duplicate suppression. Every
// record is its own transaction, so one failed unit of work can be rolled
// back without poisoning the connection for the records after it.
//
// Duplicate handling is deliberately asymmetric, reproducing the observed
// source behavior: a duplicate employer is skipped and the loop continues,
// while a vacancy that fails the duplicate check aborts the remaining batch
// of that call. TestInsertVacancies_StopOnDuplicate documents the latter so
// any future change is intentional.
type Writer struct {
	DB *gorm.DB

	// Timeout bounds each record's unit of work. Zero disables the bound.
	Timeout time.Duration
}

// InsertRecords dispatches a batch to the table-specific write path.
// records must be []*domain.Employer for the employers table and
// []*domain.Vacancy for the vacancies table.
func (w *Writer) InsertRecords(ctx context.Context, table string, records any) error {
	switch table {
	case TableEmployers:
		recs, ok := records.([]*domain.Employer)
		if !ok {
			return ErrRecordType
		}
		return w.InsertEmployers(ctx, recs)
	case TableVacancies:
		recs, ok := records.([]*domain.Vacancy)
		if !ok {
			return ErrRecordType
		}
		return w.InsertVacancies(ctx, recs)
	default:
		return ErrUnknownTable
	}
}

// InsertEmployers inserts each employer in its own transaction. A
// uniqueness violation on the upstream id means the employer is already
// stored: logged and skipped, so re-ingestion is idempotent. Any other
// persistence error rolls back only that record and the loop continues;
// context expiry aborts the call, same as the vacancy path.
func (w *Writer) InsertEmployers(ctx context.Context, records []*domain.Employer) error {
	for _, rec := range records {
		octx, cancel := w.opCtx(ctx)
		err := w.DB.WithContext(octx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(rec).Error
		})
		cancel()

		switch {
		case err == nil:
			metrics.EmployersInserted.Inc()
		case IsDuplicate(err):
			metrics.EmployersDuplicate.Inc()
			log.Info().Int("employer_hh_id", rec.EmployerHHID).Msg("employer already stored, skipping")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return err
		default:
			metrics.StorageErrors.Inc()
			log.Error().Err(err).Int("employer_hh_id", rec.EmployerHHID).Msg("employer insert failed")
		}
	}
	return nil
}

// InsertVacancies processes each vacancy in order:
//
//  1. resolve the employer surrogate key from the upstream employer id; an
//     unresolvable employer skips the record and continues;
//  2. run the full-attribute duplicate check scoped to that employer;
//  3. a detected duplicate abandons the remaining batch of this call;
//  4. otherwise insert; a uniqueness violation at insert time (the
//     fingerprint constraint is the authoritative guard) rolls back that
//     single unit of work and the loop continues.
func (w *Writer) InsertVacancies(ctx context.Context, records []*domain.Vacancy) error {
	for _, rec := range records {
		octx, cancel := w.opCtx(ctx)
		stop, err := w.insertVacancy(octx, rec)
		cancel()
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

// insertVacancy handles one vacancy. stop reports that the remaining batch
// must be abandoned; err is reserved for context cancellation, the only
// condition that aborts the call with an error.
func (w *Writer) insertVacancy(ctx context.Context, rec *domain.Vacancy) (stop bool, err error) {
	logger := log.With().
		Int("vacancy_hh_id", rec.VacancyHHID).
		Int("employer_hh_id", rec.EmployerHHID).
		Logger()

	var emp domain.Employer
	err = w.DB.WithContext(ctx).
		Where("employer_hh_id = ?", rec.EmployerHHID).
		First(&emp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.VacanciesUnresolved.Inc()
		logger.Warn().Msg("employer not stored, skipping vacancy")
		return false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		metrics.StorageErrors.Inc()
		logger.Error().Err(err).Msg("employer lookup failed, skipping vacancy")
		return false, nil
	}
	rec.EmployerID = emp.EmployerID

	dup, err := w.vacancyExists(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// The check is a fast path; on failure fall through to the insert
		// and let the fingerprint constraint arbitrate.
		metrics.StorageErrors.Inc()
		logger.Error().Err(err).Msg("duplicate check failed, relying on constraint")
	}
	if dup {
		metrics.VacanciesDuplicate.Inc()
		logger.Info().Msg("duplicate vacancy detected, abandoning remaining batch")
		return true, nil
	}

	rec.Fingerprint = rec.ComputeFingerprint()
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	switch {
	case err == nil:
		metrics.VacanciesInserted.Inc()
	case IsDuplicate(err):
		metrics.VacanciesDuplicate.Inc()
		logger.Info().Msg("vacancy insert hit uniqueness constraint, skipping")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return false, err
	default:
		metrics.StorageErrors.Inc()
		logger.Error().Err(err).Msg("vacancy insert failed")
	}
	return false, nil
}

// vacancyExists runs the full-attribute duplicate check from the data
// model, scoped to the resolved employer. Salary and address are
// descriptive attributes and are not part of vacancy identity.
func (w *Writer) vacancyExists(ctx context.Context, rec *domain.Vacancy) (bool, error) {
	var count int64
	err := w.DB.WithContext(ctx).Model(&domain.Vacancy{}).
		Where("vacancy_hh_id = ?", rec.VacancyHHID).
		Where("employer_id = ?", rec.EmployerID).
		Where("name = ?", rec.Name).
		Where("area = ?", rec.Area).
		Where("type = ?", rec.Type).
		Where("published_at = ?", rec.PublishedAt).
		Where("created_at = ?", rec.CreatedAt).
		Where("url = ?", rec.URL).
		Where("alternate_url = ?", rec.AlternateURL).
		Where("snippet_requirement = ?", rec.SnippetRequirement).
		Where("snippet_responsibility = ?", rec.SnippetResponsibility).
		Where("schedule = ?", rec.Schedule).
		Where("professional_roles = ?", rec.ProfessionalRoles).
		Where("experience = ?", rec.Experience).
		Where("employment = ?", rec.Employment).
		Count(&count).Error
	return count > 0, err
}

func (w *Writer) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.Timeout)
}
