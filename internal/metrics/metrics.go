// Package metrics exposes Prometheus counters for the ingestion pipeline.
// Counters are registered on the default registry at init and served by the
// /metrics endpoint in cmd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts successfully decoded upstream pages.
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_pages_fetched_total",
		Help: "Number of upstream pages fetched and decoded successfully.",
	})

	// FetchRetries counts transport-level page attempts that failed and
	// were retried with backoff.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_fetch_retries_total",
		Help: "Number of page fetch attempts that failed at transport level.",
	})

	// FetchFailures counts pages abandoned after retry exhaustion.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_fetch_failures_total",
		Help: "Number of pages given up on after bounded retries.",
	})

	// RecordsMalformed counts upstream records rejected by normalization.
	RecordsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_records_malformed_total",
		Help: "Number of upstream records rejected for missing required fields.",
	})

	// EmployersInserted / EmployersDuplicate track the employer write path.
	EmployersInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_employers_inserted_total",
		Help: "Number of employer rows inserted.",
	})
	EmployersDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_employers_duplicate_total",
		Help: "Number of employer records skipped as already present.",
	})

	// Vacancy write path outcomes.
	VacanciesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_vacancies_inserted_total",
		Help: "Number of vacancy rows inserted.",
	})
	VacanciesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_vacancies_duplicate_total",
		Help: "Number of vacancy records detected as duplicates.",
	})
	VacanciesUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_vacancies_unresolved_total",
		Help: "Number of vacancy records skipped because their employer is not stored.",
	})

	// StorageErrors counts units of work rolled back for non-duplicate reasons.
	StorageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hhscout_storage_errors_total",
		Help: "Number of persistence attempts rolled back due to storage errors.",
	})
)
