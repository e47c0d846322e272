package main

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optiscan/r307.go/pkg/device"
)

func setBaudCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-baud RATE",
		Short: "Change the module's UART baud rate",
		Long: "Writes the baud divisor register at the current session baud and saves\n" +
			"the new rate to the settings file. The module applies it only after a\n" +
			"power-cycle.",
		Args: cobra.ExactArgs(1),
		RunE: runSetBaud,
	}
}

func runSetBaud(_ *cobra.Command, args []string) error {
	baud, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid baud rate %q", args[0])
	}

	dev, closePort, err := openDevice()
	if err != nil {
		return err
	}
	defer closePort()

	n, err := dev.SetBaudRate(baud)
	if err != nil {
		if errors.Is(err, device.ErrUnsupportedBaud) {
			return fmt.Errorf("%w: choose one of %v", err, device.BaudRates())
		}
		return err
	}

	cfg.Serial.Baud = baud
	if err := cfg.Save(cfgPath); err != nil {
		return err
	}
	log.Printf("module baud set to %d (divisor %d), saved to %s", baud, n, cfgPath)
	log.Println("power-cycle the sensor now; the next run uses the saved baud")
	return nil
}
