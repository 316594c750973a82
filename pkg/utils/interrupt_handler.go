package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spechtlabs/go-otel-utils/otelzap"
	"go.uber.org/zap"
)

// InterruptHandler cancels the given context when the process receives an
// interrupt-style signal. Cancellation unwinds menus and subprocess waits,
// and the deferred cleanup in the commands takes it from there.
func InterruptHandler(ctx context.Context, cancelCtx context.CancelCauseFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)

		select {
		case <-ctx.Done():
			return

		case sig := <-sigs:
			otelzap.L().Debug("Received signal, initiating graceful shutdown...", zap.String("signal", sig.String()))
			cancelCtx(context.Canceled)
		}
	}()
}
