package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/export"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
)

const exportPageSize = 500

type ExportService interface {
	// CollectProductions loads every production matching the filter, ignoring its paging.
	CollectProductions(ctx context.Context, scope Scope, filter dto.ProductionFilter) ([]export.Row, error)
	Write(w io.Writer, format string, rows []export.Row) error
}

type exportService struct {
	productions repository.ProductionRepository
	now         func() time.Time
}

func NewExportService(productions repository.ProductionRepository) ExportService {
	return &exportService{productions: productions, now: time.Now}
}

func (s *exportService) CollectProductions(ctx context.Context, scope Scope, filter dto.ProductionFilter) ([]export.Row, error) {
	filter.ScopeCompanyID = scope.CompanyFilter()
	filter.Limit = exportPageSize

	var rows []export.Row
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.productions.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			rows = append(rows, export.RowFromProduction(&batch[i]))
		}
		if len(batch) < exportPageSize || int64(len(rows)) >= total {
			return rows, nil
		}
	}
}

func (s *exportService) Write(w io.Writer, format string, rows []export.Row) error {
	title := export.Title(s.now())
	switch format {
	case export.FormatCSV:
		return export.WriteCSV(w, title, rows)
	case export.FormatXLSX, "":
		return export.WriteXLSX(w, title, rows)
	}
	return fmt.Errorf("%w: unsupported export format %q", ErrValidation, format)
}
