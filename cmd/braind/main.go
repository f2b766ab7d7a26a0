// braind runs the reference decision service: a fixed-weight policy
// evaluator speaking the line-delimited brain protocol. Useful for local
// runs and integration tests when no external trainer is available.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pthm-cable/broth/brain"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "Listen address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", err)
		os.Exit(1)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	log, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal("listen", zap.String("addr", *addr), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := brain.NewServer(log)
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		ln.Close()
	}()

	log.Info("decision service listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
		log.Fatal("serve", zap.Error(err))
	}
	log.Info("decision service stopped", zap.Int("transitions_received", srv.TrainedCount()))
}
