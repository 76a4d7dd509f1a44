package display

import (
	"fmt"

	"go.uber.org/zap"
)

// Display is the presentation collaborator. Implementations render on
// whatever the kiosk has (OLED, console); the core only pushes content.
type Display interface {
	ShowStatus(lines ...string)
	ShowPricing(label string, amount float64, currency, unit string)
	ShowCost(durationMinutes, amount float64, currency string)
	ShowError(msg string)
}

// LogDisplay writes display content to the log. It stands in for the OLED
// on bench setups and keeps a rendering trail in production.
type LogDisplay struct {
	logger *zap.Logger
}

// NewLogDisplay builds a log-backed display.
func NewLogDisplay(logger *zap.Logger) *LogDisplay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDisplay{logger: logger.Named("display")}
}

// ShowStatus renders free-form status lines.
func (d *LogDisplay) ShowStatus(lines ...string) {
	d.logger.Info("status", zap.Strings("lines", lines))
}

// ShowPricing renders one fee label with its rate.
func (d *LogDisplay) ShowPricing(label string, amount float64, currency, unit string) {
	d.logger.Info("pricing",
		zap.String("label", label),
		zap.String("rate", fmt.Sprintf("%.4f %s/%s", amount, currency, unit)),
	)
}

// ShowCost renders the end-of-session summary.
func (d *LogDisplay) ShowCost(durationMinutes, amount float64, currency string) {
	d.logger.Info("session summary",
		zap.Float64("duration_minutes", durationMinutes),
		zap.String("cost", fmt.Sprintf("%.2f %s", amount, currency)),
	)
}

// ShowError renders a short error message.
func (d *LogDisplay) ShowError(msg string) {
	d.logger.Warn("error shown", zap.String("msg", msg))
}
