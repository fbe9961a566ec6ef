package service

import (
	"context"
	"fmt"
	"io"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/parsers"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"

	"golang.org/x/sync/errgroup"
)

const previewConcurrency = 4

// TokenFile is one uploaded token CSV. Open is called once.
type TokenFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type TokenImportService interface {
	// Preview parses every file and matches it to a production by lot number.
	// Per-file problems are reported on the file, results keep the input order.
	Preview(ctx context.Context, scope Scope, files []TokenFile) (*dto.TokenPreviewResponse, error)
}

type tokenImportService struct {
	productions repository.ProductionRepository
}

func NewTokenImportService(productions repository.ProductionRepository) TokenImportService {
	return &tokenImportService{productions: productions}
}

func (s *tokenImportService) Preview(ctx context.Context, scope Scope, files []TokenFile) (*dto.TokenPreviewResponse, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no token files uploaded", ErrValidation)
	}

	results := make([]dto.TokenPreview, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.previewOne(gctx, scope, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(results))
	resp := &dto.TokenPreviewResponse{Files: results}
	for i := range results {
		r := &results[i]
		if r.Error == "" && r.LotNumber != "" {
			if first, dup := seen[r.LotNumber]; dup {
				r.Error = fmt.Sprintf("lot %s already listed in %s", r.LotNumber, results[first].FileName)
			} else {
				seen[r.LotNumber] = i
			}
		}
		if r.Error == "" && !r.AlreadyGenerated {
			resp.Ready++
		}
	}
	return resp, nil
}

func (s *tokenImportService) previewOne(ctx context.Context, scope Scope, f TokenFile) dto.TokenPreview {
	out := dto.TokenPreview{FileName: f.Name}

	lot, err := parsers.LotNumberFromFileName(f.Name)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.LotNumber = lot

	rc, err := f.Open()
	if err != nil {
		out.Error = "open file: " + err.Error()
		return out
	}
	token, err := parsers.ParseQRToken(rc)
	_ = rc.Close()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.QRToken = token

	p, err := s.productions.FindByLotNumber(ctx, lot)
	if err != nil || !scope.Allows(p.CompanyID) {
		out.Error = fmt.Sprintf("no production with lot number %s", lot)
		return out
	}
	out.ProductionID = p.ID.String()
	out.LotTotal = p.LotTotal
	out.AlreadyGenerated = p.Generated()
	if out.AlreadyGenerated {
		out.Error = ErrAlreadyGenerated.Error()
	}
	return out
}

// ReadyItems turns the generatable rows of a preview into bulk generation items.
func ReadyItems(preview *dto.TokenPreviewResponse) []dto.BulkItem {
	var items []dto.BulkItem
	for _, f := range preview.Files {
		if f.Error == "" && !f.AlreadyGenerated && f.ProductionID != "" {
			items = append(items, dto.BulkItem{ProductionID: f.ProductionID, QRToken: f.QRToken})
		}
	}
	return items
}
