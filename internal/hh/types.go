// Package hh implements the client for the HeadHunter job-search API: a
// rate-limited page fetcher, the raw upstream record shapes, and the typed
// errors the pipeline distinguishes between.
package hh

import "encoding/json"

// Page mirrors the envelope of one paged upstream response. PageIndex is
// zero-based; pagination continues while the next index stays below Pages.
type Page struct {
	Found     int               `json:"found"`
	PageIndex int               `json:"page"`
	Pages     int               `json:"pages"`
	Items     []json.RawMessage `json:"items"`
}

// IDName is the ubiquitous {"id": ..., "name": ...} nested object.
type IDName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawEmployer is one employer record as returned by the /employers endpoint.
// Optional links are pointers; upstream sends string ids.
type RawEmployer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	URL           *string `json:"url"`
	AlternateURL  *string `json:"alternate_url"`
	VacanciesURL  *string `json:"vacancies_url"`
	OpenVacancies int     `json:"open_vacancies"`
}

// RawSalary is the nullable salary block of a vacancy. Every inner field is
// independently nullable.
type RawSalary struct {
	From     *int    `json:"from"`
	To       *int    `json:"to"`
	Currency *string `json:"currency"`
	Gross    *bool   `json:"gross"`
}

// RawAddress is the nullable address block; only the free-text form is used.
type RawAddress struct {
	Raw *string `json:"raw"`
}

// RawSnippet holds the two highlighted description fragments.
type RawSnippet struct {
	Requirement    *string `json:"requirement"`
	Responsibility *string `json:"responsibility"`
}

// RawEmployerRef is the embedded employer reference inside a vacancy.
type RawEmployerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawVacancy is one vacancy record as returned by the /vacancies endpoint.
type RawVacancy struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Area              *IDName         `json:"area"`
	Salary            *RawSalary      `json:"salary"`
	Type              *IDName         `json:"type"`
	Address           *RawAddress     `json:"address"`
	PublishedAt       string          `json:"published_at"`
	CreatedAt         string          `json:"created_at"`
	URL               string          `json:"url"`
	AlternateURL      string          `json:"alternate_url"`
	Employer          *RawEmployerRef `json:"employer"`
	Snippet           *RawSnippet     `json:"snippet"`
	Schedule          *IDName         `json:"schedule"`
	ProfessionalRoles []IDName        `json:"professional_roles"`
	Experience        *IDName         `json:"experience"`
	Employment        *IDName         `json:"employment"`
}
