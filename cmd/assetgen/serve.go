package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/blob"
	"github.com/example/kingdom-assetgen/internal/httpapi"
)

func newCmdServe(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the job ledger over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := o.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			addr := o.cfg.Addr
			host := addr
			if strings.HasPrefix(host, ":") {
				host = "localhost" + host
			}
			api := httpapi.Server{
				Assets:  blob.LocalFS{Root: o.cfg.AssetRoot},
				Jobs:    ledger,
				BaseURL: fmt.Sprintf("http://%s", host),
				Logger:  o.logger.Named("http"),
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			o.logger.Info("ledger API listening", zap.String("addr", addr), zap.String("base_url", api.BaseURL))

			select {
			case err := <-errc:
				return fmt.Errorf("listen: %w", err)
			case <-cmd.Context().Done():
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
