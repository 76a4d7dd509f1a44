package hardware

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Relay controls the contactor that permits power flow.
type Relay interface {
	Set(on bool) error
}

// SysfsRelay drives a GPIO pin through the kernel sysfs interface. The pin
// is exported and configured as output on construction and forced low on
// Close.
type SysfsRelay struct {
	pin    int
	logger *zap.Logger
}

const sysfsGPIORoot = "/sys/class/gpio"

// NewSysfsRelay exports the pin and sets it up as an output.
func NewSysfsRelay(pin int, logger *zap.Logger) (*SysfsRelay, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &SysfsRelay{pin: pin, logger: logger}

	pinDir := fmt.Sprintf("%s/gpio%d", sysfsGPIORoot, pin)
	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		if err := os.WriteFile(sysfsGPIORoot+"/export", []byte(fmt.Sprintf("%d", pin)), 0o644); err != nil {
			return nil, fmt.Errorf("hardware: export gpio %d: %w", pin, err)
		}
		// The direction file appears asynchronously after export.
		time.Sleep(100 * time.Millisecond)
	}
	if err := os.WriteFile(pinDir+"/direction", []byte("out"), 0o644); err != nil {
		return nil, fmt.Errorf("hardware: set gpio %d direction: %w", pin, err)
	}

	return r, nil
}

// Set drives the relay pin.
func (r *SysfsRelay) Set(on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	path := fmt.Sprintf("%s/gpio%d/value", sysfsGPIORoot, r.pin)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("hardware: set gpio %d: %w", r.pin, err)
	}
	r.logger.Debug("relay toggled", zap.Int("pin", r.pin), zap.Bool("on", on))
	return nil
}

// Close forces the relay off.
func (r *SysfsRelay) Close() error {
	return r.Set(false)
}

// NopRelay is used when the agent runs without the contactor attached.
type NopRelay struct {
	logger *zap.Logger
}

// NewNopRelay builds a relay that only logs.
func NewNopRelay(logger *zap.Logger) *NopRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NopRelay{logger: logger}
}

// Set logs the requested state.
func (r *NopRelay) Set(on bool) error {
	r.logger.Info("relay (disabled)", zap.Bool("on", on))
	return nil
}
