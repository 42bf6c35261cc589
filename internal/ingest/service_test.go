package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mpetrenko/hh-scout/internal/domain"
	"github.com/mpetrenko/hh-scout/internal/hh"
	"github.com/mpetrenko/hh-scout/internal/repo"
)

// fakeAPI serves canned page sequences keyed by endpoint and records every
// endpoint it was asked for.
type fakeAPI struct {
	pages map[string]map[int]*hh.Page
	errs  map[string]error
	calls []string
}

func (f *fakeAPI) FetchPage(_ context.Context, endpoint string, params url.Values) (*hh.Page, error) {
	f.calls = append(f.calls, endpoint)
	if err, ok := f.errs[endpoint]; ok {
		return nil, err
	}
	idx, _ := strconv.Atoi(params.Get("page"))
	p, ok := f.pages[endpoint][idx]
	if !ok {
		return nil, fmt.Errorf("unexpected request %s page %d", endpoint, idx)
	}
	return p, nil
}

func mkPage(idx, pages int, items ...string) *hh.Page {
	p := &hh.Page{Found: len(items), PageIndex: idx, Pages: pages}
	for _, it := range items {
		p.Items = append(p.Items, json.RawMessage(it))
	}
	return p
}

func employerJSON(id int, name, vacanciesURL string) string {
	if vacanciesURL == "" {
		return fmt.Sprintf(`{"id": "%d", "name": %q, "open_vacancies": 1}`, id, name)
	}
	return fmt.Sprintf(`{"id": "%d", "name": %q, "vacancies_url": %q, "open_vacancies": 1}`, id, name, vacanciesURL)
}

func vacancyJSON(id, employerID int, name string) string {
	return fmt.Sprintf(`{
		"id": "%d",
		"name": %q,
		"area": {"name": "Moscow"},
		"type": {"name": "Open"},
		"published_at": "2025-03-01T14:05:06+0300",
		"created_at": "2025-02-28T09:00:00+0300",
		"url": "https://api.hh.ru/vacancies/%d",
		"alternate_url": "https://hh.ru/vacancy/%d",
		"employer": {"id": "%d", "name": "E"},
		"snippet": {"requirement": "Go", "responsibility": "Services"},
		"schedule": {"name": "Full day"},
		"professional_roles": [{"name": "Programmer"}],
		"experience": {"name": "1-3 years"},
		"employment": {"name": "Full time"}
	}`, id, name, id, id, employerID)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "ingest_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.Provision(db); err != nil {
		t.Fatalf("provision: %v", err)
	}
	return db
}

func newService(db *gorm.DB, api *fakeAPI) *Service {
	return &Service{
		Fetcher:           &hh.Fetcher{Pages: api, BackoffSeed: time.Millisecond},
		Writer:            &repo.Writer{DB: db},
		EmployersEndpoint: "https://api.hh.ru/employers",
		PageSize:          100,
		EmployerPages:     5,
		VacancyPages:      5,
		TopEmployers:      10,
	}
}

func TestService_Run_PersistsEmployersAndVacancies(t *testing.T) {
	vacURL1 := "https://api.hh.ru/vacancies?employer_id=1"
	vacURL2 := "https://api.hh.ru/vacancies?employer_id=2"
	api := &fakeAPI{pages: map[string]map[int]*hh.Page{
		"https://api.hh.ru/employers": {
			0: mkPage(0, 1, employerJSON(1, "Alpha", vacURL1), employerJSON(2, "Beta", vacURL2)),
		},
		vacURL1: {
			0: mkPage(0, 2, vacancyJSON(100, 1, "Go Developer")),
			1: mkPage(1, 2, vacancyJSON(101, 1, "SRE"), `{"id": "broken"}`),
		},
		vacURL2: {
			0: mkPage(0, 1, vacancyJSON(200, 2, "Analyst")),
		},
	}}
	db := newTestDB(t)

	if err := newService(db, api).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var employers []domain.Employer
	if err := db.Order("employer_hh_id").Find(&employers).Error; err != nil {
		t.Fatalf("load employers: %v", err)
	}
	if len(employers) != 2 || employers[0].Name != "Alpha" || employers[1].Name != "Beta" {
		t.Fatalf("unexpected employers: %+v", employers)
	}

	// The malformed vacancy item is rejected, everything else persists and
	// resolves to its employer's surrogate key.
	var vacancies []domain.Vacancy
	if err := db.Order("vacancy_hh_id").Find(&vacancies).Error; err != nil {
		t.Fatalf("load vacancies: %v", err)
	}
	if len(vacancies) != 3 {
		t.Fatalf("expected 3 vacancies, got %+v", vacancies)
	}
	if vacancies[0].EmployerID != employers[0].EmployerID {
		t.Fatalf("vacancy not linked to its employer: %+v", vacancies[0])
	}
	if vacancies[2].EmployerID != employers[1].EmployerID {
		t.Fatalf("vacancy not linked to its employer: %+v", vacancies[2])
	}
}

func TestService_Run_TopEmployersCap(t *testing.T) {
	vacURL1 := "https://api.hh.ru/vacancies?employer_id=1"
	vacURL2 := "https://api.hh.ru/vacancies?employer_id=2"
	vacURL3 := "https://api.hh.ru/vacancies?employer_id=3"
	api := &fakeAPI{pages: map[string]map[int]*hh.Page{
		"https://api.hh.ru/employers": {
			0: mkPage(0, 1,
				employerJSON(1, "First", vacURL1),
				employerJSON(2, "Second", vacURL2),
				employerJSON(3, "Third", vacURL3)),
		},
		vacURL1: {0: mkPage(0, 1, vacancyJSON(100, 1, "A"))},
		vacURL2: {0: mkPage(0, 1, vacancyJSON(200, 2, "B"))},
	}}
	db := newTestDB(t)

	svc := newService(db, api)
	svc.TopEmployers = 2
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var n int64
	if err := db.Model(&domain.Employer{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected only the top 2 employers stored, got %d", n)
	}
	for _, endpoint := range api.calls {
		if endpoint == vacURL3 {
			t.Fatal("vacancies of an employer beyond the cap must never be fetched")
		}
	}
}

func TestService_Run_StatusErrorIsFatal(t *testing.T) {
	vacURL := "https://api.hh.ru/vacancies?employer_id=1"
	api := &fakeAPI{
		pages: map[string]map[int]*hh.Page{
			"https://api.hh.ru/employers": {
				0: mkPage(0, 1, employerJSON(1, "Alpha", vacURL)),
			},
		},
		errs: map[string]error{
			vacURL: &hh.StatusError{StatusCode: 403, Body: "captcha_required"},
		},
	}
	db := newTestDB(t)

	err := newService(db, api).Run(context.Background())
	var se *hh.StatusError
	if !errors.As(err, &se) || se.StatusCode != 403 {
		t.Fatalf("expected the upstream status error to surface, got %v", err)
	}

	// The employer write committed before the vacancy fetch failed.
	var n int64
	if err := db.Model(&domain.Employer{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the employer batch already persisted, got %d", n)
	}
}

func TestService_Run_SkipsEmployerWithoutVacanciesURL(t *testing.T) {
	vacURL := "https://api.hh.ru/vacancies?employer_id=2"
	api := &fakeAPI{pages: map[string]map[int]*hh.Page{
		"https://api.hh.ru/employers": {
			0: mkPage(0, 1, employerJSON(1, "NoURL", ""), employerJSON(2, "HasURL", vacURL)),
		},
		vacURL: {0: mkPage(0, 1, vacancyJSON(200, 2, "B"))},
	}}
	db := newTestDB(t)

	if err := newService(db, api).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var vacancies []domain.Vacancy
	if err := db.Find(&vacancies).Error; err != nil {
		t.Fatalf("load vacancies: %v", err)
	}
	if len(vacancies) != 1 || vacancies[0].VacancyHHID != 200 {
		t.Fatalf("expected only the linked employer's vacancy, got %+v", vacancies)
	}
}

func TestService_Run_EmptyUpstream(t *testing.T) {
	api := &fakeAPI{pages: map[string]map[int]*hh.Page{
		"https://api.hh.ru/employers": {0: mkPage(0, 0)},
	}}
	db := newTestDB(t)

	if err := newService(db, api).Run(context.Background()); err != nil {
		t.Fatalf("an empty listing is not an error: %v", err)
	}
}
