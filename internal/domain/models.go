// Package domain defines the persistence models for employers and vacancies.
// These types are mapped with GORM and mirror the relational schema the
// ingestion pipeline writes into and the analytics queries read from.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Employer represents one company pulled from the upstream job-search API.
// A row is created once per distinct upstream employer and never updated or
// deleted by the pipeline; re-ingestion of a known employer is a no-op.
//
// Fields:
//   - EmployerID: surrogate primary key.
//   - EmployerHHID: upstream identifier, unique across all stored employers.
//   - Name: display name (required).
//   - URL / AlternateURL / VacanciesURL: upstream profile and listing links.
//   - OpenVacancies: machine-readable open-vacancy count as reported upstream.
type Employer struct {
	EmployerID    int     `json:"employer_id"    gorm:"column:employer_id;primaryKey;autoIncrement"`
	EmployerHHID  int     `json:"employer_hh_id" gorm:"column:employer_hh_id;uniqueIndex:ux_employers_hh_id"`
	AlternateURL  *string `json:"alternate_url"  gorm:"column:alternate_url"`
	Name          string  `json:"name"           gorm:"type:varchar(255);not null"`
	URL           *string `json:"url"            gorm:"column:url"`
	VacanciesURL  *string `json:"vacancies_url"  gorm:"column:vacancies_url"`
	OpenVacancies int     `json:"open_vacancies" gorm:"column:open_vacancies"`

	// Vacancies declares the has-many side so migration places the foreign
	// key on vacancies(employer_id) referencing employers(employer_id).
	Vacancies []Vacancy `json:"-" gorm:"foreignKey:EmployerID;references:EmployerID"`
}

// TableName returns the database table name for Employer.
func (Employer) TableName() string { return "employers" }

// Vacancy represents one job listing owned by exactly one Employer. Nullable
// upstream attributes are pointer-typed; a nil pointer is the explicit
// absent marker and is never substituted with a zero value.
//
// Two vacancies are duplicates when they agree on every identity attribute
// (see identityTuple); salary, currency, gross and address are descriptive
// and take no part in duplicate detection. Fingerprint is a SHA-256 digest
// of the identity tuple and is backed by a unique index, so the database is
// the authoritative duplicate guard even under concurrent writers.
type Vacancy struct {
	VacancyID   int    `json:"vacancies_id"  gorm:"column:vacancies_id;primaryKey;autoIncrement"`
	VacancyHHID int    `json:"vacancy_hh_id" gorm:"column:vacancy_hh_id"`
	EmployerID  int    `json:"employer_id"   gorm:"column:employer_id;not null;index"`
	Name        string `json:"name"          gorm:"not null"`
	Area        string `json:"area"`

	SalaryFrom *int    `json:"salary_from" gorm:"column:salary_from"`
	SalaryTo   *int    `json:"salary_to"   gorm:"column:salary_to"`
	Currency   *string `json:"currency"`
	Gross      *bool   `json:"gross"`

	Type        string    `json:"type"`
	Address     *string   `json:"address"`
	PublishedAt time.Time `json:"published_at" gorm:"column:published_at;type:date"`
	CreatedAt   time.Time `json:"created_at"   gorm:"column:created_at;type:date;autoCreateTime:false"`

	URL                   string `json:"url"`
	AlternateURL          string `json:"alternate_url"          gorm:"column:alternate_url"`
	SnippetRequirement    string `json:"snippet_requirement"    gorm:"column:snippet_requirement;type:text"`
	SnippetResponsibility string `json:"snippet_responsibility" gorm:"column:snippet_responsibility;type:text"`
	Schedule              string `json:"schedule"`
	ProfessionalRoles     string `json:"professional_roles" gorm:"column:professional_roles"`
	Experience            string `json:"experience"`
	Employment            string `json:"employment"`

	Fingerprint string `json:"-" gorm:"type:char(64);uniqueIndex:ux_vacancies_fingerprint"`

	// EmployerHHID carries the upstream employer reference until the writer
	// resolves it to EmployerID. Never persisted.
	EmployerHHID int `json:"-" gorm:"-"`
}

// TableName returns the database table name for Vacancy.
func (Vacancy) TableName() string { return "vacancies" }

// identityTuple lists, in a fixed order, every attribute that defines vacancy
// identity for duplicate detection.
func (v *Vacancy) identityTuple() []string {
	return []string{
		strconv.Itoa(v.VacancyHHID),
		strconv.Itoa(v.EmployerID),
		v.Name,
		v.Area,
		v.Type,
		v.PublishedAt.Format("2006-01-02"),
		v.CreatedAt.Format("2006-01-02"),
		v.URL,
		v.AlternateURL,
		v.SnippetRequirement,
		v.SnippetResponsibility,
		v.Schedule,
		v.ProfessionalRoles,
		v.Experience,
		v.Employment,
	}
}

// ComputeFingerprint returns the hex SHA-256 digest of the identity tuple.
// EmployerID must already be resolved when this is called.
func (v *Vacancy) ComputeFingerprint() string {
	sum := sha256.Sum256([]byte(strings.Join(v.identityTuple(), "\x1f")))
	return hex.EncodeToString(sum[:])
}
