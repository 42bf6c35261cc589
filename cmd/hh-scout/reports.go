package main

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/mpetrenko/hh-scout/internal/repo"
)

// printReports runs the five analytic queries and writes them to stdout.
func printReports(ctx context.Context, db *gorm.DB, keyword string) error {
	companies, err := repo.CompaniesByVacancyCount(ctx, db)
	if err != nil {
		return fmt.Errorf("companies by vacancy count: %w", err)
	}
	fmt.Println("-------- companies by vacancy count --------")
	for _, c := range companies {
		fmt.Printf("%-40s %d\n", c.EmployerName, c.VacancyCount)
	}

	all, err := repo.AllVacancies(ctx, db)
	if err != nil {
		return fmt.Errorf("all vacancies: %w", err)
	}
	fmt.Printf("-------- all vacancies (%d) --------\n", len(all))
	for _, v := range all {
		fmt.Printf("%s | %s | %s..%s %s gross=%s | %s\n",
			v.VacancyName, v.EmployerName,
			fmtInt(v.SalaryFrom), fmtInt(v.SalaryTo), fmtStr(v.Currency), fmtBool(v.Gross),
			v.AlternateURL)
	}

	avgs, err := repo.AverageSalaryByCurrencyAndGross(ctx, db)
	if err != nil {
		return fmt.Errorf("average salary: %w", err)
	}
	fmt.Println("-------- average salary by (currency, gross) --------")
	for _, a := range avgs {
		fmt.Printf("%s gross=%s: avg_from=%s avg_to=%s\n",
			fmtStr(a.Currency), fmtBool(a.Gross), fmtFloat(a.AvgFrom), fmtFloat(a.AvgTo))
	}

	above, err := repo.VacanciesAboveAverage(ctx, db)
	if err != nil {
		return fmt.Errorf("vacancies above average: %w", err)
	}
	fmt.Printf("-------- vacancies above group average (%d) --------\n", len(above))
	for _, v := range above {
		fmt.Printf("#%d %s %s..%s %s gross=%s\n",
			v.VacancyID, v.VacancyName,
			fmtInt(v.SalaryFrom), fmtInt(v.SalaryTo), fmtStr(v.Currency), fmtBool(v.Gross))
	}

	matches, err := repo.VacanciesMatchingKeyword(ctx, db, keyword)
	if err != nil {
		return fmt.Errorf("vacancies matching %q: %w", keyword, err)
	}
	fmt.Printf("-------- vacancies matching %q (%d) --------\n", keyword, len(matches))
	for _, m := range matches {
		fmt.Printf("%s | %s | %s | %s\n", m.VacancyName, m.EmployerName, m.ProfessionalRoles, m.AlternateURL)
	}

	return nil
}

func fmtInt(p *int) string {
	if p == nil {
		return "null"
	}
	return strconv.Itoa(*p)
}

func fmtFloat(p *float64) string {
	if p == nil {
		return "null"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func fmtStr(p *string) string {
	if p == nil {
		return "null"
	}
	return *p
}

func fmtBool(p *bool) string {
	if p == nil {
		return "null"
	}
	return strconv.FormatBool(*p)
}
