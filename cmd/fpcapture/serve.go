package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/optiscan/r307.go/pkg/capture"
	"github.com/optiscan/r307.go/pkg/publish"
	"github.com/optiscan/r307.go/pkg/raster"
)

var serveBroker string

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Capture on MQTT trigger and publish the image",
		Args:  cobra.ExactArgs(0),
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveBroker, "mqtt", "", "Broker URL (overrides settings file)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	broker := serveBroker
	if broker == "" {
		broker = cfg.MQTT.URL
	}
	if broker == "" {
		return errors.New("no broker configured; pass --mqtt or set mqtt.url in the settings file")
	}

	pub, err := publish.New(broker)
	if err != nil {
		return err
	}
	if err := pub.Connect(); err != nil {
		return err
	}
	defer pub.Close()

	triggers := make(chan struct{}, 1)
	err = pub.Subscribe("trigger", func(topic string, _ []byte) {
		select {
		case triggers <- struct{}{}:
		default:
			// A capture is already pending; the port is half-duplex.
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	log.Printf("serving captures, broker %s, topic prefix %q", broker, pub.TopicPrefix)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-triggers:
				if err := captureAndPublish(ctx, pub); err != nil {
					log.Printf("capture failed: %v", err)
				}
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				st := publish.Status{
					Time: time.Now().UTC(),
					Port: cfg.Serial.Port,
					Baud: cfg.Serial.Baud,
				}
				if err := pub.PublishStatus(st); err != nil {
					log.Printf("heartbeat failed: %v", err)
				}
			}
		}
	})
	return g.Wait()
}

func captureAndPublish(ctx context.Context, pub *publish.Publisher) error {
	dev, closePort, err := openDevice()
	if err != nil {
		return err
	}
	defer closePort()

	log.Println("trigger received, waiting for finger...")
	img, err := capture.NewSession(dev).Capture(ctx)
	if err != nil {
		return err
	}

	var png bytes.Buffer
	if err := raster.EncodePNG(&png, img.Pixels, img.Width, img.Height); err != nil {
		return err
	}
	if err := pub.PublishImage(png.Bytes()); err != nil {
		return err
	}
	ev := publish.NewEvent(img.Width, img.Height, png.Len())
	if err := pub.PublishEvent(ev); err != nil {
		return err
	}
	log.Printf("published capture %s (%d png bytes)", ev.ID, png.Len())
	return nil
}
