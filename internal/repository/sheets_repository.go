package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

type spreadsheetResolver interface {
	ResolveSpreadsheetID(ctx context.Context, title string) (string, error)
}

// SheetsGridRepository reads the first worksheet of a Google spreadsheet.
type SheetsGridRepository struct {
	service  *sheets.Service
	resolver spreadsheetResolver
	title    string
	logger   *zap.Logger

	mu            sync.Mutex
	spreadsheetID string
}

// NewSheetsGridRepository constructs the repository. When spreadsheetID is
// empty it is looked up by title on first use.
func NewSheetsGridRepository(service *sheets.Service, resolver spreadsheetResolver, spreadsheetID, title string, logger *zap.Logger) *SheetsGridRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetsGridRepository{
		service:       service,
		resolver:      resolver,
		title:         title,
		logger:        logger,
		spreadsheetID: spreadsheetID,
	}
}

// FetchGrid returns every formatted cell of the first worksheet.
func (r *SheetsGridRepository) FetchGrid(ctx context.Context) (models.Grid, error) {
	id, err := r.resolveID(ctx)
	if err != nil {
		return nil, err
	}

	meta, err := r.service.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("load spreadsheet %s: %w", id, err)
	}
	if len(meta.Sheets) == 0 || meta.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("spreadsheet %s has no worksheets", id)
	}
	sheetTitle := meta.Sheets[0].Properties.Title

	values, err := r.service.Spreadsheets.Values.Get(id, quoteSheetTitle(sheetTitle)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheetTitle, err)
	}

	r.logger.Debug("worksheet fetched", zap.String("sheet", sheetTitle), zap.Int("rows", len(values.Values)))
	return models.GridFromValues(values.Values), nil
}

func (r *SheetsGridRepository) resolveID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spreadsheetID != "" {
		return r.spreadsheetID, nil
	}
	if r.resolver == nil {
		return "", fmt.Errorf("spreadsheet id is not configured")
	}
	id, err := r.resolver.ResolveSpreadsheetID(ctx, r.title)
	if err != nil {
		return "", err
	}
	r.logger.Info("spreadsheet resolved by title", zap.String("title", r.title), zap.String("spreadsheet_id", id))
	r.spreadsheetID = id
	return id, nil
}

func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
