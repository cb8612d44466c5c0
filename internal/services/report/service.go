package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/models"
)

// Output formats
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Service writes formatted calculation results
type Service struct {
	formatter *Formatter
	logger    *common.Logger
}

// NewService creates a new report service
func NewService(formatter *Formatter, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		formatter: formatter,
		logger:    logger,
	}
}

// Formatter returns the underlying formatter
func (s *Service) Formatter() *Formatter {
	return s.formatter
}

// WriteAnnual renders an annual result to w in the requested format
func (s *Service) WriteAnnual(w io.Writer, result *models.AnnualResult, title, format string) error {
	switch format {
	case FormatJSON:
		return s.writeJSON(w, result)
	case FormatTable, FormatMarkdown, "":
		_, err := io.WriteString(w, s.formatter.Annual(result, title))
		return err
	}
	return fmt.Errorf("unsupported output format %q: %w", format, models.ErrInvalidInput)
}

// WriteHistory renders a lifetime result to w in the requested format
func (s *Service) WriteHistory(w io.Writer, result *models.HistoryResult, title, format string) error {
	switch format {
	case FormatJSON:
		return s.writeJSON(w, result)
	case FormatMarkdown:
		_, err := io.WriteString(w, s.formatter.HistoryMarkdown(result, title))
		return err
	case FormatTable, "":
		_, err := io.WriteString(w, s.formatter.History(result, title))
		return err
	}
	return fmt.Errorf("unsupported output format %q: %w", format, models.ErrInvalidInput)
}

// WriteValidation renders a validation result; JSON output is the raw result
func (s *Service) WriteValidation(w io.Writer, path string, result *models.ValidationResult, format string) error {
	if format == FormatJSON {
		return s.writeJSON(w, result)
	}
	_, err := io.WriteString(w, s.formatter.Validation(path, result))
	return err
}

// SaveHistoryChart renders the growth chart for a lifetime result and writes it to path
func (s *Service) SaveHistoryChart(path string, points []GrowthPoint) error {
	png, err := RenderHistoryChart(points)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chart directory: %w", err)
		}
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	s.logger.Info().Str("path", path).Int("bytes", len(png)).Int("points", len(points)).Msg("Chart saved")
	return nil
}

func (s *Service) writeJSON(w io.Writer, v interface{}) error {
	data, err := s.formatter.JSON(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
