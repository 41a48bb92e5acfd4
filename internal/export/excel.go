package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spotbook/internal/domain"
	"spotbook/internal/interval"
	"spotbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// Exporter renders the booking schedule into an xlsx workbook: one row per
// resource, one column per day, cells filled per the phase of the booking
// occupying that day.
type Exporter struct {
	service domain.BookingService
	catalog domain.ResourceCatalog
	clock   domain.Clock
	path    string
	logger  *zerolog.Logger
}

func NewExporter(service domain.BookingService, catalog domain.ResourceCatalog, clock domain.Clock, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		service: service,
		catalog: catalog,
		clock:   clock,
		path:    path,
		logger:  logger,
	}
}

// ExportSchedule writes the occupancy grid for [startDate, endDate) and
// returns the path of the saved file.
func (e *Exporter) ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	iv, err := interval.New(startDate, endDate)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	resources, err := e.catalog.ListResources(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing resources: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout)))

	dateCols := e.writeDateHeaders(f, iv)
	e.writeResourceHeaders(f, resources)

	if err := e.writeScheduleCells(ctx, f, resources, iv, dateCols); err != nil {
		return "", err
	}

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.SetColWidth(sheetName, "B", lastCol, 18)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule exported")
	return filePath, nil
}

// writeDateHeaders fills row 2 with one column per day of the interval and
// returns the column index for each date key.
func (e *Exporter) writeDateHeaders(f *excelize.File, iv interval.Interval) map[string]int {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	col := 2
	dateCols := make(map[string]int)
	for day := iv.Start; day.Before(iv.End); day = day.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, day.Format("01-02"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[day.Format(models.DateLayout)] = col
		col++
	}
	return dateCols
}

func (e *Exporter) writeResourceHeaders(f *excelize.File, resources []*models.Resource) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 3
	for _, resource := range resources {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (#%d)", resource.Name, resource.ID))
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		row++
	}
}

func (e *Exporter) writeScheduleCells(ctx context.Context, f *excelize.File, resources []*models.Resource, iv interval.Interval, dateCols map[string]int) error {
	now := e.clock.Now()

	row := 3
	for _, resource := range resources {
		bookings, err := e.service.ListBookingsByResource(ctx, resource.ID)
		if err != nil {
			return fmt.Errorf("error listing bookings for resource %d: %w", resource.ID, err)
		}

		for day := iv.Start; day.Before(iv.End); day = day.AddDate(0, 0, 1) {
			col := dateCols[day.Format(models.DateLayout)]
			cell, _ := excelize.CoordinatesToCellName(col, row)

			booking := bookingOn(bookings, day)
			if booking == nil {
				_ = f.SetCellValue(sheetName, cell, "free")
				continue
			}

			_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("requester %d\n#%d", booking.RequesterID, booking.ID))
			styleID, err := e.occupiedStyle(f, booking, now)
			if err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
		}
		row++
	}
	return nil
}

// bookingOn returns the active booking whose interval covers the day, nil if
// the day is free. End dates are exclusive, so the checkout day never matches.
func bookingOn(bookings []*models.Booking, day time.Time) *models.Booking {
	for _, b := range bookings {
		if !b.StartDate.After(day) && day.Before(b.EndDate) {
			return b
		}
	}
	return nil
}

// occupiedStyle colors the cell by the booking's temporal phase: yellow while
// the stay is ongoing, gray once it is over, red for upcoming occupancy.
func (e *Exporter) occupiedStyle(f *excelize.File, booking *models.Booking, now time.Time) (int, error) {
	iv := interval.Interval{Start: booking.StartDate, End: booking.EndDate}

	var color string
	switch iv.PhaseAt(now) {
	case interval.PhaseOngoing:
		color = "#FFEB9C"
	case interval.PhasePast:
		color = "#D9D9D9"
	default:
		color = "#FFC7CE"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
