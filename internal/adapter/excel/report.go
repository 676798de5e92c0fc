// Package excel exports landing breakdowns as .xlsx workbooks.
package excel

import (
	"fmt"
	"io"
	"sort"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the exported workbook.
const (
	SheetBreakdown = "Breakdown"
	SheetRegions   = "Regions"
	SheetYears     = "By Year"
)

// WriteReport writes a workbook with the superclass breakdown (restricted to
// region when non-empty, with a pie chart), landing counts per region, and
// landing counts per year with a running total.
func WriteReport(w io.Writer, records []domain.LandingRecord, region string) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetBreakdown); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeBreakdown(f, header, records, region); err != nil {
		return err
	}
	if err := writeRegions(f, header, records); err != nil {
		return err
	}
	if err := writeYears(f, header, records); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeBreakdown(f *excelize.File, header int, records []domain.LandingRecord, region string) error {
	shares := domain.Breakdown(records, region)
	title := "All regions"
	if region != "" {
		title = region
	}

	rows := [][]any{{"Superclass", "Count", "Percent"}}
	for _, s := range shares {
		rows = append(rows, []any{s.Superclass, s.Count, s.Percent})
	}
	if err := writeTable(f, SheetBreakdown, header, rows); err != nil {
		return err
	}
	if len(shares) == 0 {
		return nil
	}

	last := len(shares) + 1
	err := f.AddChart(SheetBreakdown, "E2", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", SheetBreakdown),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", SheetBreakdown, last),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", SheetBreakdown, last),
		}},
		Title: []excelize.RichTextRun{{Text: "Classification: " + title}},
	})
	if err != nil {
		return fmt.Errorf("add breakdown chart: %w", err)
	}
	return nil
}

func writeRegions(f *excelize.File, header int, records []domain.LandingRecord) error {
	if _, err := f.NewSheet(SheetRegions); err != nil {
		return fmt.Errorf("create %s sheet: %w", SheetRegions, err)
	}
	summary := domain.SummarizeRegions(records)
	rows := [][]any{{"Region", "Landings"}}
	for _, rc := range summary.Ranked() {
		rows = append(rows, []any{rc.Region, rc.Count})
	}
	return writeTable(f, SheetRegions, header, rows)
}

func writeYears(f *excelize.File, header int, records []domain.LandingRecord) error {
	if _, err := f.NewSheet(SheetYears); err != nil {
		return fmt.Errorf("create %s sheet: %w", SheetYears, err)
	}
	counts := make(map[int]int)
	for i := range records {
		counts[records[i].Year]++
	}
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)

	rows := [][]any{{"Year", "Landings", "Cumulative"}}
	total := 0
	for _, y := range years {
		total += counts[y]
		rows = append(rows, []any{y, counts[y], total})
	}
	return writeTable(f, SheetYears, header, rows)
}

func writeTable(f *excelize.File, sheet string, header int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	end, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, header); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "A", 20)
}
