package repo

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mpetrenko/hh-scout/internal/domain"
)

// newRepoDB opens a throwaway SQLite database through the production
// constructor (foreign keys enforced) and provisions the schema.
func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "repo_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Release the file handle before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := Provision(db); err != nil {
		t.Fatalf("provision: %v", err)
	}
	return db
}

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "does-not-exist", "app.db")
	if db, err := OpenSQLite(bad); err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}
}

func TestOpenSQLite_ProvisionCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Provision(db); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&domain.Employer{}, &domain.Vacancy{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&domain.Employer{}, "ux_employers_hh_id") {
		t.Fatal("employers must carry the unique upstream-id index")
	}
	if !m.HasIndex(&domain.Vacancy{}, "ux_vacancies_fingerprint") {
		t.Fatal("vacancies must carry the unique fingerprint index")
	}

	// Quick insert round-trip to prove the schema is usable.
	emp := &domain.Employer{EmployerHHID: 1455, Name: "HeadHunter"}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("insert employer: %v", err)
	}
	vac := &domain.Vacancy{
		VacancyHHID: 1, EmployerID: emp.EmployerID, Name: "Go Developer",
		Area: "Moscow", Type: "Open",
		PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		Fingerprint: "f0",
	}
	if err := db.Create(vac).Error; err != nil {
		t.Fatalf("insert vacancy: %v", err)
	}

	var got domain.Vacancy
	if err := db.First(&got, "vacancies_id = ?", vac.VacancyID).Error; err != nil {
		t.Fatalf("load vacancy: %v", err)
	}
	if got.EmployerID != emp.EmployerID || got.Name != "Go Developer" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestProvision_ForeignKeyPointsAtEmployers(t *testing.T) {
	db := newRepoDB(t)

	// Employers are the referenced side: inserting one with no vacancies
	// must succeed on the provisioned schema with enforcement on.
	emp := &domain.Employer{EmployerHHID: 1455, Name: "HeadHunter"}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("employer insert must not trip the constraint: %v", err)
	}

	// A vacancy referencing a stored employer passes.
	ok := &domain.Vacancy{
		VacancyHHID: 1, EmployerID: emp.EmployerID, Name: "Linked",
		Area: "Moscow", Type: "Open",
		PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Fingerprint: "fk-ok",
	}
	if err := db.Create(ok).Error; err != nil {
		t.Fatalf("vacancy with a resolvable employer: %v", err)
	}

	// One referencing a nonexistent employer is rejected by the database.
	dangling := &domain.Vacancy{
		VacancyHHID: 2, EmployerID: 9999, Name: "Dangling",
		Area: "Moscow", Type: "Open",
		PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Fingerprint: "fk-dangling",
	}
	if err := db.Create(dangling).Error; err == nil {
		t.Fatal("vacancy referencing a nonexistent employer must be rejected")
	}
}

func TestIsDuplicate_FingerprintConstraint(t *testing.T) {
	db := newRepoDB(t)

	emp := &domain.Employer{EmployerHHID: 1, Name: "Acme"}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("seed employer: %v", err)
	}

	mk := func() *domain.Vacancy {
		return &domain.Vacancy{
			VacancyHHID: 10, EmployerID: emp.EmployerID, Name: "Engineer",
			Area: "Moscow", Type: "Open",
			PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Fingerprint: "same-fingerprint",
		}
	}
	if err := db.Create(mk()).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := db.Create(mk()).Error
	if err == nil {
		t.Fatal("expected uniqueness violation on the fingerprint")
	}
	if !IsDuplicate(err) {
		t.Fatalf("IsDuplicate must recognize the violation: %v", err)
	}
}
