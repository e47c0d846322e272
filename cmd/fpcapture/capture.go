package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/optiscan/r307.go/pkg/capture"
	"github.com/optiscan/r307.go/pkg/raster"
)

var (
	captureOut     string
	capturePGM     bool
	captureWait    = 15 * time.Second
	captureRetries = 2
	captureRawFile = "fingerprint_uart.raw"
)

func captureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Wait for a finger and write the image",
		Args:  cobra.ExactArgs(0),
		RunE:  runCapture,
	}
	cmd.Flags().StringVarP(&captureOut, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&capturePGM, "pgm", false, "Write PGM instead of PNG")
	cmd.Flags().DurationVar(&captureWait, "wait", captureWait, "Max time to wait for a finger")
	cmd.Flags().IntVar(&captureRetries, "retries", captureRetries, "Download retries on timeout")
	cmd.Flags().StringVar(&captureRawFile, "raw-file", captureRawFile, "Where to save raw bytes if decoding fails")
	return cmd
}

func runCapture(cmd *cobra.Command, _ []string) error {
	dev, closePort, err := openDevice()
	if err != nil {
		return err
	}
	defer closePort()

	sess := capture.NewSession(dev)
	sess.WaitTimeout = captureWait
	sess.DownloadRetries = captureRetries

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log.Printf("using port %s at %d baud", cfg.Serial.Port, cfg.Serial.Baud)
	log.Println("place finger on the sensor...")

	img, err := sess.Capture(ctx)
	if err != nil {
		var de *capture.DecodeError
		if errors.As(err, &de) && captureRawFile != "" {
			if werr := os.WriteFile(captureRawFile, de.Raw, 0o644); werr == nil {
				log.Printf("saved %d raw bytes to %s for analysis", len(de.Raw), captureRawFile)
			} else {
				log.Printf("saving raw bytes failed: %v", werr)
			}
		}
		return err
	}

	out := os.Stdout
	if captureOut != "" {
		f, err := os.Create(captureOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", captureOut, err)
		}
		defer f.Close()
		out = f
	}
	if capturePGM {
		err = raster.WritePGM(out, img.Pixels, img.Width, img.Height)
	} else {
		err = raster.EncodePNG(out, img.Pixels, img.Width, img.Height)
	}
	if err != nil {
		return err
	}
	if captureOut != "" {
		log.Printf("saved image to %s", captureOut)
	}
	return nil
}
