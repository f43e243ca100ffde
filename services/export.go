package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportService renders admin spreadsheets.
type ExportService struct {
	Deps
	ledger  *LedgerService
	payouts *PayoutService
}

const timeLayout = "2006-01-02 15:04"

// Payouts writes every payout request matching status (empty for all) as
// an XLSX workbook to w.
func (s *ExportService) Payouts(ctx context.Context, w io.Writer, status string) error {
	rows, err := s.payouts.all(ctx, PayoutFilter{Status: status})
	if err != nil {
		return err
	}

	sheet := newSheet("Payouts", "ID", "Member", "Static ID", "Amount", "Status", "Requested", "Processed", "Processed By", "Note")
	for _, p := range rows {
		var name, staticID, processed, processedBy string
		if p.User != nil {
			name, staticID = p.User.Name, p.User.StaticID
		}
		if p.ProcessedAt != nil {
			processed = p.ProcessedAt.In(s.loc()).Format(timeLayout)
		}
		if p.ProcessedBy != nil {
			processedBy = fmt.Sprint(*p.ProcessedBy)
		}
		sheet.row(p.ID, name, staticID, p.Amount, p.Status,
			p.CreatedAt.In(s.loc()).Format(timeLayout), processed, processedBy, p.Note)
	}
	return sheet.write(w)
}

// Leaderboard writes the ranking for period and metric as an XLSX workbook.
func (s *ExportService) Leaderboard(ctx context.Context, w io.Writer, period, metric string) error {
	entries, err := s.ledger.Leaderboard(ctx, period, metric)
	if err != nil {
		return err
	}
	sheet := newSheet("Leaderboard", "Place", "Member", "Static ID", "Earned", "Reports")
	for i, e := range entries {
		sheet.row(i+1, e.Name, e.StaticID, e.Total, e.Reports)
	}
	return sheet.write(w)
}

type xlsxSheet struct {
	f    *excelize.File
	name string
	next int
	err  error
}

func newSheet(name string, headers ...string) *xlsxSheet {
	f := excelize.NewFile()
	sh := &xlsxSheet{f: f, name: name, next: 1}
	index, err := f.NewSheet(name)
	if err != nil {
		sh.err = err
		return sh
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		sh.err = err
		return sh
	}
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	sh.row(values...)
	return sh
}

func (sh *xlsxSheet) row(values ...interface{}) {
	if sh.err != nil {
		return
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, sh.next)
		if err != nil {
			sh.err = err
			return
		}
		if err := sh.f.SetCellValue(sh.name, cell, v); err != nil {
			sh.err = err
			return
		}
	}
	sh.next++
}

func (sh *xlsxSheet) write(w io.Writer) error {
	defer sh.f.Close()
	if sh.err != nil {
		return fmt.Errorf("build %s sheet: %w", sh.name, sh.err)
	}
	_, err := sh.f.WriteTo(w)
	return err
}
