package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shellLines lets the interactive shell claim SIGINT for the command it is
// running, so Ctrl-C aborts that command instead of the whole shell.
var shellLines = &lineGuard{}

// lineGuard tracks the cancel func of the shell line in flight, if any.
type lineGuard struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// begin derives the context for one shell line. The returned func must be
// called when the line finishes.
func (g *lineGuard) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		g.cancel = nil
		g.mu.Unlock()
		cancel()
	}
}

// interrupt cancels the running line and reports whether there was one.
func (g *lineGuard) interrupt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel == nil {
		return false
	}

	g.cancel()
	g.cancel = nil

	return true
}

// shutdownContext returns a context that cancels on SIGINT/SIGTERM and
// force-exits on the next signal after that. A SIGINT that arrives while a
// shell line holds the guard cancels only that line.
func shutdownContext(parent context.Context, logger *slog.Logger, lines *lineGuard) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		for {
			select {
			case sig := <-sigCh:
				if sig == syscall.SIGINT && lines != nil && lines.interrupt() {
					logger.Debug("interrupted shell command")

					continue
				}

				logger.Info("received signal, canceling", slog.String("signal", sig.String()))
				cancel()
			case <-ctx.Done():
				return
			}

			break
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
