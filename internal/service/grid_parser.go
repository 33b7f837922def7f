package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/noah-isme/room-usage-monitor/internal/models"
)

const (
	periodMarker = "限"
	monthMarker  = "月"
	dayMarker    = "日"

	defaultBlockRows = 5
)

var monthDayPattern = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日$`)

// GridParserConfig tunes how reservation blocks are located.
type GridParserConfig struct {
	// RoomID is the literal in the first cell of the tracked room's status row.
	RoomID string
	// Year is the operating year every date is projected onto.
	Year int
	// BlockRows is the fixed height of a day block, header row included.
	BlockRows int
}

// GridParser decodes the reservation sheet into schedule entries.
//
// The sheet is laid out as repeating blocks. Each block starts with a header
// row whose first cell carries the date ("7月 3日 ...") and whose cells name
// the periods; the row directly below holds the tracked room's booking marks.
type GridParser struct {
	cfg    GridParserConfig
	logger *zap.Logger
}

// NewGridParser constructs a parser with sane defaults.
func NewGridParser(cfg GridParserConfig, logger *zap.Logger) *GridParser {
	if cfg.Year == 0 {
		cfg.Year = models.OperatingYear
	}
	if cfg.BlockRows <= 0 {
		cfg.BlockRows = defaultBlockRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridParser{cfg: cfg, logger: logger}
}

// Parse walks the grid top to bottom. Malformed blocks are skipped; they never
// abort the scan.
func (p *GridParser) Parse(grid models.Grid) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0)

	i := 0
	for i < len(grid) {
		row := grid[i]
		if !isHeaderRow(row) {
			i++
			continue
		}

		blockEntries, err := p.parseBlock(grid, i)
		if err != nil {
			p.logger.Debug("skipping schedule block", zap.Int("row", i+1), zap.Error(err))
		} else {
			entries = append(entries, blockEntries...)
		}
		i += p.cfg.BlockRows
	}

	return entries
}

func (p *GridParser) parseBlock(grid models.Grid, headerIdx int) ([]models.ScheduleEntry, error) {
	date, err := parseHeaderDate(grid[headerIdx].First().Text(), p.cfg.Year)
	if err != nil {
		return nil, err
	}

	if headerIdx+1 >= len(grid) {
		return nil, fmt.Errorf("no status row after header for %s", date)
	}
	status := grid[headerIdx+1]
	first := status.First()
	if !first.IsText() || first.Text() != p.cfg.RoomID {
		return nil, fmt.Errorf("status row for %s does not belong to room %s", date, p.cfg.RoomID)
	}

	entries := make([]models.ScheduleEntry, 0, len(status)-1)
	for j, cell := range status[1:] {
		entries = append(entries, models.ScheduleEntry{
			Date:    date,
			Period:  models.Period(j + 1),
			Booking: cell.Text(),
		})
	}
	return entries, nil
}

func isHeaderRow(row models.Row) bool {
	first := row.First()
	if !first.IsText() {
		return false
	}
	text := first.Text()
	if !strings.Contains(text, monthMarker) || !strings.Contains(text, dayMarker) {
		return false
	}
	return strings.Contains(row.JoinedText(), periodMarker)
}

// parseHeaderDate reads the leading "M月D日" token of a header cell.
func parseHeaderDate(text string, year int) (models.CivilDate, error) {
	token := text
	if idx := strings.IndexAny(text, " 　"); idx >= 0 {
		token = text[:idx]
	}
	token = width.Narrow.String(token)

	match := monthDayPattern.FindStringSubmatch(token)
	if match == nil {
		return models.CivilDate{}, fmt.Errorf("header date %q is not M月D日", token)
	}
	month, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[2])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return models.CivilDate{}, fmt.Errorf("header date %q does not exist in %d", token, year)
	}
	return models.DateOf(t), nil
}
