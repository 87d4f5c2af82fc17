package main

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/onyxsilicon/qdispatch/internal/device"
	"github.com/onyxsilicon/qdispatch/internal/model"
)

// serveCmd brings up a thin observability surface (health + metrics) over a
// running device. It is not a substitute for the network client/server
// wrapper the spec excludes from this core's scope: there is no inference
// submission route here, only status.
func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		sampleSize  int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve /healthz and /metrics for a running device",
		Flags: append(append(commonDeviceFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8089",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
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

			d, err := device.Construct(int(hwID), cfg, device.Options{
				Adapter:  model.NewEchoAdapter(int(sampleSize)),
				Affinity: affinity,
				Logger:   log,
				PortsIn:  1,
				PortsOut: 1,
			})
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = d.Close(closeCtx)
			}()

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())

			e.GET("/healthz", func(c *echo.Context) error {
				return c.String(http.StatusOK, d.State().String())
			})
			e.GET("/metrics", func(c *echo.Context) error {
				body, err := json.Marshal(d.Metrics())
				if err != nil {
					return err
				}
				return c.Blob(http.StatusOK, "application/json", body)
			})

			log.Info("serving device status", "address", addr, "device", hwID)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
