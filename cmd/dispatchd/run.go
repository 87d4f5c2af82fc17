package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/onyxsilicon/qdispatch/internal/device"
	"github.com/onyxsilicon/qdispatch/internal/model"
	"github.com/onyxsilicon/qdispatch/internal/sample"
)

func runCmd() *cli.Command {
	var (
		batches    int64
		rateLimit  float64
		sampleSize int64
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Drive a device with a synthetic load generator",
		Flags: append(append(commonDeviceFlags(), loggingFlags()...),
			&cli.Int64Flag{
				Name:        "batches",
				Usage:       "number of batches to submit",
				Value:       1000,
				Destination: &batches,
			},
			&cli.FloatFlag{
				Name:        "rate",
				Usage:       "max batches submitted per second (0 = unlimited)",
				Destination: &rateLimit,
			},
			&cli.Int64Flag{
				Name:        "sample-size",
				Usage:       "bytes per sample for the reference echo adapter",
				Value:       64,
				Destination: &sampleSize,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := buildLogger()
			cfg, affinity, err := resolveDeviceConfig(cmd)
			if err != nil {
				return err
			}

			adapter := model.NewEchoAdapter(int(sampleSize))

			d, err := device.Construct(int(hwID), cfg, device.Options{
				Adapter:  adapter,
				Affinity: affinity,
				Logger:   log,
				PortsIn:  1,
				PortsOut: 1,
			})
			if err != nil {
				return fmt.Errorf("construct device: %w", err)
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = d.Close(closeCtx)
			}()

			var limiter *rate.Limiter
			if rateLimit > 0 {
				limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
			}

			done := make(chan int64, int(batches)*cfg.ModelBatchSize)
			submitted := int64(0)
			start := time.Now()

			for i := int64(0); i < batches; i++ {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						break
					}
				}
				batch := syntheticBatch(cfg.ModelBatchSize, int(sampleSize), i, done)
				for d.Inference(batch) < 0 {
					time.Sleep(50 * time.Microsecond)
				}
				submitted++
			}

			for i := int64(0); i < submitted*int64(cfg.ModelBatchSize); i++ {
				<-done
			}

			elapsed := time.Since(start)
			log.Info("run complete",
				"batches", submitted,
				"elapsed", elapsed.String(),
				"metrics", d.Metrics(),
			)
			return nil
		},
	}
}

func syntheticBatch(batchSize, sampleSize int, tag int64, done chan<- int64) sample.Batch {
	b := make(sample.Batch, batchSize)
	for i := range b {
		buf := make([]byte, sampleSize)
		for j := range buf {
			buf[j] = byte((tag + int64(i) + int64(j)) % 256)
		}
		b[i] = sample.Sample{
			Index: tag*int64(batchSize) + int64(i),
			Buf:   buf,
			Callback: func(s sample.Sample, size int, data []byte) {
				done <- s.Index
			},
		}
	}
	return b
}

