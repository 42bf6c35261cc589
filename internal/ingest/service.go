// Package ingest wires the pipeline together: page through the upstream
// employer listing, persist the top employers, then fetch and persist each
// employer's vacancies. Employers are fully committed before any dependent
// vacancy write begins, so every vacancy reference is resolvable.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mpetrenko/hh-scout/internal/domain"
	"github.com/mpetrenko/hh-scout/internal/hh"
	"github.com/mpetrenko/hh-scout/internal/metrics"
	"github.com/mpetrenko/hh-scout/internal/normalize"
	"github.com/mpetrenko/hh-scout/internal/repo"
)

const tracerName = "github.com/mpetrenko/hh-scout/internal/ingest"

// Service runs one full ingestion cycle. The reference behavior is
// sequential: one employer's vacancies are fully written before the next
// employer is fetched.
type Service struct {
	Fetcher *hh.Fetcher
	Writer  *repo.Writer

	// EmployersEndpoint is the full URL of the employer listing.
	EmployersEndpoint string

	// PageSize is the per_page parameter sent upstream.
	PageSize int

	// EmployerPages / VacancyPages cap pagination per fetch.
	EmployerPages int
	VacancyPages  int

	// TopEmployers limits how many employers (ordered upstream by open
	// vacancies) get their vacancies ingested.
	TopEmployers int
}

// Run executes one ingestion cycle. It returns an error only for fatal
// conditions: an upstream status error or context cancellation. Skipped and
// malformed records are logged and counted, never fatal.
func (s *Service) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ingest.run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	employers, err := s.loadEmployers(ctx)
	if err != nil {
		return fmt.Errorf("load employers: %w", err)
	}
	if len(employers) == 0 {
		logger.Warn().Msg("no employers returned upstream, nothing to ingest")
		return nil
	}
	logger.Info().Int("employers", len(employers)).Msg("employers persisted")

	for _, emp := range employers {
		if emp.VacanciesURL == nil || *emp.VacanciesURL == "" {
			logger.Warn().Int("employer_hh_id", emp.EmployerHHID).Msg("employer has no vacancies url, skipping")
			continue
		}
		if err := s.loadVacancies(ctx, emp); err != nil {
			return fmt.Errorf("load vacancies for employer %d: %w", emp.EmployerHHID, err)
		}
	}

	logger.Info().Msg("ingestion cycle complete")
	return nil
}

// loadEmployers fetches the employer listing ordered by open vacancies,
// keeps the top N, and persists them before returning.
func (s *Service) loadEmployers(ctx context.Context) ([]*domain.Employer, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.employers")
	defer span.End()

	params := url.Values{}
	params.Set("only_with_vacancies", "true")
	params.Set("sort_by", "by_vacancies_open")
	params.Set("page", "0")
	params.Set("per_page", strconv.Itoa(s.PageSize))

	items, err := s.Fetcher.FetchAll(ctx, s.EmployersEndpoint, params, s.EmployerPages)
	if err != nil {
		return nil, err
	}

	var employers []*domain.Employer
	for _, raw := range items {
		emp, err := normalize.Employer(raw)
		if err != nil {
			metrics.RecordsMalformed.Inc()
			log.Warn().Err(err).Msg("rejecting employer record")
			continue
		}
		employers = append(employers, emp)
		if s.TopEmployers > 0 && len(employers) == s.TopEmployers {
			break
		}
	}
	span.SetAttributes(attribute.Int("employers.count", len(employers)))

	if err := s.Writer.InsertRecords(ctx, repo.TableEmployers, employers); err != nil {
		return nil, err
	}
	return employers, nil
}

// loadVacancies fetches and persists every vacancy page of one employer.
func (s *Service) loadVacancies(ctx context.Context, emp *domain.Employer) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ingest.vacancies")
	defer span.End()
	span.SetAttributes(attribute.Int("employer.hh_id", emp.EmployerHHID))

	params := url.Values{}
	params.Set("page", "0")
	params.Set("per_page", strconv.Itoa(s.PageSize))

	items, err := s.Fetcher.FetchAll(ctx, *emp.VacanciesURL, params, s.VacancyPages)
	if err != nil {
		return err
	}

	var vacancies []*domain.Vacancy
	for _, raw := range items {
		vac, err := normalize.Vacancy(raw)
		if err != nil {
			metrics.RecordsMalformed.Inc()
			log.Warn().Err(err).Int("employer_hh_id", emp.EmployerHHID).Msg("rejecting vacancy record")
			continue
		}
		vacancies = append(vacancies, vac)
	}
	span.SetAttributes(attribute.Int("vacancies.count", len(vacancies)))

	log.Info().
		Int("employer_hh_id", emp.EmployerHHID).
		Str("employer", emp.Name).
		Int("vacancies", len(vacancies)).
		Msg("writing vacancies")
	return s.Writer.InsertRecords(ctx, repo.TableVacancies, vacancies)
}
