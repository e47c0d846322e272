// Command fpcapture captures fingerprint images from an R307 sensor.
package main

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/optiscan/r307.go/pkg/config"
	"github.com/optiscan/r307.go/pkg/device"
	"github.com/optiscan/r307.go/pkg/transport"
	"github.com/optiscan/r307.go/pkg/transport/serialport"
)

var (
	cfgPath  string
	portFlag string
	baudFlag int

	cfg *config.Config
)

func main() {
	cmd := &cobra.Command{
		Use:               "fpcapture",
		Short:             "R307 fingerprint sensor capture tool",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "Settings file")
	cmd.PersistentFlags().StringVar(&portFlag, "port", "", "Serial port, e.g. /dev/ttyUSB0 or COM7 (saved)")
	cmd.PersistentFlags().IntVar(&baudFlag, "baud", 0, "Session baud rate (saved)")

	cmd.AddCommand(captureCommand())
	cmd.AddCommand(setBaudCommand())
	cmd.AddCommand(portsCommand())
	cmd.AddCommand(serveCommand())

	if err := cmd.Execute(); err != nil {
		log.Fatalln(err)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(cfgPath); err != nil {
		return err
	}

	// CLI overrides are persisted, so the next run uses them silently.
	persist := false
	if portFlag != "" {
		cfg.Serial.Port, persist = portFlag, true
	}
	if baudFlag != 0 {
		cfg.Serial.Baud, persist = baudFlag, true
	}
	if persist {
		if err := cfg.Save(cfgPath); err != nil {
			return err
		}
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.Log.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
	return nil
}

// openDevice opens the configured serial port and wraps it as a
// Device. The returned closer releases the port.
func openDevice() (*device.Device, func(), error) {
	if cfg.Serial.Port == "" {
		return nil, nil, errors.New("no serial port configured; pass --port or run `fpcapture ports`")
	}
	port, err := serialport.Open(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return nil, nil, err
	}
	return device.New(transport.NewConn(port)), func() { port.Close() }, nil
}
