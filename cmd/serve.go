/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eslsoft/storyquest/internal/app"
	"github.com/eslsoft/storyquest/internal/infrastructure/telemetry"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the connect/HTTP server and the gRPC health server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		container, cleanup, err := app.Initialize()
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		defer cleanup()
		logger := container.Logger

		shutdownTracing, err := telemetry.Init(ctx, container.Config.Telemetry, logger)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.WithError(err).Warn("flush traces")
			}
		}()

		srv := container.Server
		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.StartGRPC)
		g.Go(srv.StartHTTP)
		g.Go(func() error { return container.Relay.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("http-port", 8080, "HTTP listen port for connect, REST and websocket traffic")
	serveCmd.Flags().Int("grpc-port", 9090, "gRPC listen port for health and reflection")
	bindFlagToViper("server.http_port", serveCmd.Flags().Lookup("http-port"))
	bindFlagToViper("server.grpc_port", serveCmd.Flags().Lookup("grpc-port"))
}
