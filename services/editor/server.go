// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package editor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// Serve runs the HTTP API on cfg.Server.Addr until ctx is cancelled, then
// shuts down gracefully within ShutdownTimeout.
func Serve(ctx context.Context, svc *Service) error {
	cfg := svc.Config().Server
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: NewRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting codewords server", slog.String("address", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down codewords server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
