package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mpetrenko/hh-scout/internal/domain"
)

// This file implements the analytic read queries over the persisted tables.
// All of them are pure reads, tolerate an empty result set, and mirror the
// grouping-by-(currency, gross) semantics of the ingestion schema.

// CompanyVacancyCount pairs an employer with the number of vacancies stored
// for it.
type CompanyVacancyCount struct {
	EmployerName string `json:"employer_name"`
	VacancyCount int64  `json:"vacancy_count"`
}

// CompaniesByVacancyCount returns every employer that owns at least one
// vacancy together with its vacancy count, ordered by count descending.
func CompaniesByVacancyCount(ctx context.Context, db *gorm.DB) ([]CompanyVacancyCount, error) {
	var out []CompanyVacancyCount
	err := db.WithContext(ctx).Raw(`
		SELECT employers.name AS employer_name, COUNT(*) AS vacancy_count
		FROM employers
		JOIN vacancies USING (employer_id)
		GROUP BY employers.employer_id, employers.name
		ORDER BY COUNT(*) DESC`).
		Scan(&out).Error
	return out, err
}

// VacancyListing is one row of the unfiltered vacancy listing.
type VacancyListing struct {
	VacancyName  string  `json:"vacancy_name"`
	EmployerName string  `json:"employer_name"`
	SalaryFrom   *int    `json:"salary_from"`
	SalaryTo     *int    `json:"salary_to"`
	Currency     *string `json:"currency"`
	Gross        *bool   `json:"gross"`
	AlternateURL string  `json:"alternate_url"`
}

// AllVacancies returns one row per stored vacancy with its employer name,
// salary bounds and public URL. No filtering, no ordering guarantees.
func AllVacancies(ctx context.Context, db *gorm.DB) ([]VacancyListing, error) {
	var out []VacancyListing
	err := db.WithContext(ctx).Raw(`
		SELECT vacancies.name AS vacancy_name, employers.name AS employer_name,
		       salary_from, salary_to, currency, gross, vacancies.alternate_url
		FROM vacancies
		JOIN employers USING (employer_id)`).
		Scan(&out).Error
	return out, err
}

// SalaryAverage is the pair of per-group salary averages. AvgFrom or AvgTo
// is nil when every row of the group lacks that bound.
type SalaryAverage struct {
	Currency *string  `json:"currency"`
	Gross    *bool    `json:"gross"`
	AvgFrom  *float64 `json:"avg_from"`
	AvgTo    *float64 `json:"avg_to"`
}

// AverageSalaryByCurrencyAndGross computes, for each distinct (currency,
// gross) pair among vacancies with at least one non-null salary bound, the
// average lower bound and the average upper bound. The two averages ignore
// nulls independently: a vacancy missing only its upper bound still
// contributes to the lower-bound average of its group.
func AverageSalaryByCurrencyAndGross(ctx context.Context, db *gorm.DB) ([]SalaryAverage, error) {
	var out []SalaryAverage
	err := db.WithContext(ctx).Raw(`
		SELECT currency, gross,
		       AVG(salary_from) AS avg_from, AVG(salary_to) AS avg_to
		FROM vacancies
		WHERE salary_from IS NOT NULL OR salary_to IS NOT NULL
		GROUP BY currency, gross`).
		Scan(&out).Error
	return out, err
}

// AboveAverageVacancy is one vacancy whose salary bounds clear its group's
// averages.
type AboveAverageVacancy struct {
	VacancyID   int     `json:"vacancies_id"`
	VacancyName string  `json:"vacancy_name"`
	SalaryFrom  *int    `json:"salary_from"`
	SalaryTo    *int    `json:"salary_to"`
	Currency    *string `json:"currency"`
	Gross       *bool   `json:"gross"`
}

// VacanciesAboveAverage returns, for every (currency, gross) group, the
// vacancies of that exact group whose lower bound is at least the group's
// average lower bound AND whose upper bound is at least the group's average
// upper bound. An undefined group average relaxes its clause; a null gross
// is matched as a literal null group, never coerced to false.
func VacanciesAboveAverage(ctx context.Context, db *gorm.DB) ([]AboveAverageVacancy, error) {
	groups, err := AverageSalaryByCurrencyAndGross(ctx, db)
	if err != nil {
		return nil, err
	}

	var out []AboveAverageVacancy
	for _, g := range groups {
		q := db.WithContext(ctx).Model(&domain.Vacancy{}).
			Select("vacancies_id AS vacancy_id, name AS vacancy_name, salary_from, salary_to, currency, gross")

		if g.Currency != nil {
			q = q.Where("currency = ?", *g.Currency)
		} else {
			q = q.Where("currency IS NULL")
		}
		if g.Gross != nil {
			q = q.Where("gross = ?", *g.Gross)
		} else {
			q = q.Where("gross IS NULL")
		}
		if g.AvgFrom != nil {
			q = q.Where("salary_from >= ?", *g.AvgFrom)
		}
		if g.AvgTo != nil {
			q = q.Where("salary_to >= ?", *g.AvgTo)
		}

		var rows []AboveAverageVacancy
		if err := q.Scan(&rows).Error; err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// KeywordMatch is one vacancy matched by a keyword search.
type KeywordMatch struct {
	VacancyName           string `json:"vacancy_name"`
	EmployerName          string `json:"employer_name"`
	AlternateURL          string `json:"alternate_url"`
	ProfessionalRoles     string `json:"professional_roles"`
	SnippetRequirement    string `json:"snippet_requirement"`
	SnippetResponsibility string `json:"snippet_responsibility"`
}

// VacanciesMatchingKeyword performs a case-insensitive substring match of
// keyword against the vacancy title, professional role and both snippet
// fields, returning the matched vacancies with their employer names.
func VacanciesMatchingKeyword(ctx context.Context, db *gorm.DB, keyword string) ([]KeywordMatch, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	var out []KeywordMatch
	err := db.WithContext(ctx).Raw(`
		SELECT vacancies.name AS vacancy_name, employers.name AS employer_name,
		       vacancies.alternate_url, professional_roles,
		       snippet_requirement, snippet_responsibility
		FROM vacancies
		JOIN employers USING (employer_id)
		WHERE LOWER(vacancies.name) LIKE @kw
		   OR LOWER(professional_roles) LIKE @kw
		   OR LOWER(snippet_requirement) LIKE @kw
		   OR LOWER(snippet_responsibility) LIKE @kw`,
		map[string]any{"kw": pattern}).
		Scan(&out).Error
	return out, err
}
