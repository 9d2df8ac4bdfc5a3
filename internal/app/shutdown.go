package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marketarb/agent/pkg/types"
)

// Shutdown stops every background goroutine, drains the HTTP server, and
// persists a final state snapshot before closing storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.health.SetReady(false)

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("shutdown-timed-out-waiting-for-goroutines")
	case <-time.After(10 * time.Second):
		a.logger.Warn("shutdown-timed-out-waiting-for-goroutines")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-failed", zap.Error(err))
	}

	a.persistMu.Lock()
	snapshot := types.PersistedState{
		TradesExecuted: a.tradesExecuted,
		Positions:      append([]types.Position(nil), a.positions...),
		LastScanMs:     time.Now().UnixMilli(),
	}
	a.persistMu.Unlock()
	if err := a.stateStore.Save(snapshot); err != nil {
		a.logger.Error("final-state-save-failed", zap.Error(err))
	}

	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage-close-failed", zap.Error(err))
		return err
	}

	a.logger.Info("shutdown-complete")
	return nil
}
