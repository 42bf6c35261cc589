// Package normalize maps raw upstream records onto the flat relational rows
// in domain. Missing optional nested blocks become nil pointers (the absent
// marker), never zero values; missing required nested paths reject the
// record with a *MalformedError.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mpetrenko/hh-scout/internal/domain"
	"github.com/mpetrenko/hh-scout/internal/hh"
)

// MalformedError reports an upstream record missing a required nested path.
// It rejects that single record and never aborts the surrounding batch.
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed record: %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed record: missing %s", e.Path)
}

func malformed(path string) error { return &MalformedError{Path: path} }

// hhTimeLayout is the timestamp format used by the upstream API,
// e.g. "2024-12-13T17:24:52+0300".
const hhTimeLayout = "2006-01-02T15:04:05-0700"

// Employer normalizes one raw employer record.
func Employer(raw json.RawMessage) (*domain.Employer, error) {
	var r hh.RawEmployer
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, &MalformedError{Path: "employer", Reason: err.Error()}
	}
	if r.ID == "" {
		return nil, malformed("employer.id")
	}
	hhID, err := strconv.Atoi(r.ID)
	if err != nil {
		return nil, &MalformedError{Path: "employer.id", Reason: "not numeric: " + r.ID}
	}
	if r.Name == "" {
		return nil, malformed("employer.name")
	}
	return &domain.Employer{
		EmployerHHID:  hhID,
		AlternateURL:  r.AlternateURL,
		Name:          r.Name,
		URL:           r.URL,
		VacanciesURL:  r.VacanciesURL,
		OpenVacancies: r.OpenVacancies,
	}, nil
}

// Vacancy normalizes one raw vacancy record. The salary block and each of
// its inner fields are resolved independently: an absent block leaves all
// four salary-adjacent attributes nil, a present block with missing inner
// fields leaves only those fields nil. Only the first professional role is
// retained; a present-but-empty roles list is malformed.
func Vacancy(raw json.RawMessage) (*domain.Vacancy, error) {
	var r hh.RawVacancy
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, &MalformedError{Path: "vacancy", Reason: err.Error()}
	}

	if r.Name == "" {
		return nil, malformed("vacancy.name")
	}
	hhID, err := strconv.Atoi(r.ID)
	if err != nil {
		return nil, &MalformedError{Path: "vacancy.id", Reason: "not numeric: " + r.ID}
	}
	if r.Employer == nil || r.Employer.ID == "" {
		return nil, malformed("vacancy.employer.id")
	}
	employerHHID, err := strconv.Atoi(r.Employer.ID)
	if err != nil {
		return nil, &MalformedError{Path: "vacancy.employer.id", Reason: "not numeric: " + r.Employer.ID}
	}
	if r.Area == nil || r.Area.Name == "" {
		return nil, malformed("vacancy.area.name")
	}
	if r.Type == nil || r.Type.Name == "" {
		return nil, malformed("vacancy.type.name")
	}
	if r.Schedule == nil || r.Schedule.Name == "" {
		return nil, malformed("vacancy.schedule.name")
	}
	if r.Experience == nil || r.Experience.Name == "" {
		return nil, malformed("vacancy.experience.name")
	}
	if r.Employment == nil || r.Employment.Name == "" {
		return nil, malformed("vacancy.employment.name")
	}
	if r.Snippet == nil || r.Snippet.Requirement == nil || r.Snippet.Responsibility == nil {
		return nil, malformed("vacancy.snippet")
	}
	if len(r.ProfessionalRoles) == 0 {
		return nil, malformed("vacancy.professional_roles")
	}

	publishedAt, err := parseDate(r.PublishedAt)
	if err != nil {
		return nil, &MalformedError{Path: "vacancy.published_at", Reason: err.Error()}
	}
	createdAt, err := parseDate(r.CreatedAt)
	if err != nil {
		return nil, &MalformedError{Path: "vacancy.created_at", Reason: err.Error()}
	}

	v := &domain.Vacancy{
		VacancyHHID:           hhID,
		EmployerHHID:          employerHHID,
		Name:                  r.Name,
		Area:                  r.Area.Name,
		Type:                  r.Type.Name,
		PublishedAt:           publishedAt,
		CreatedAt:             createdAt,
		URL:                   r.URL,
		AlternateURL:          r.AlternateURL,
		SnippetRequirement:    *r.Snippet.Requirement,
		SnippetResponsibility: *r.Snippet.Responsibility,
		Schedule:              r.Schedule.Name,
		ProfessionalRoles:     r.ProfessionalRoles[0].Name,
		Experience:            r.Experience.Name,
		Employment:            r.Employment.Name,
	}

	if r.Salary != nil {
		v.SalaryFrom = r.Salary.From
		v.SalaryTo = r.Salary.To
		v.Currency = r.Salary.Currency
		v.Gross = r.Salary.Gross
	}
	if r.Address != nil {
		v.Address = r.Address.Raw
	}
	return v, nil
}

// parseDate reduces an upstream timestamp to its calendar date in the
// timestamp's own zone, since both date columns are DATE-typed.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(hhTimeLayout, s)
	if err != nil {
		// Some upstream mirrors emit RFC 3339 with a colon in the offset.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
