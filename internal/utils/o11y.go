package utils

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spechtlabs/go-otel-utils/otelprovider"
	"github.com/spechtlabs/go-otel-utils/otelzap"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitObservability initializes observability tools including logging and tracing, and returns a cleanup function.
func InitObservability() func() {
	var loggerOptions []otelprovider.LoggerOption
	var tracerOptions []otelprovider.TracerOption

	otelEndpoint := viper.GetString("otel.endpoint")

	if otelInsecure := viper.GetBool("otel.insecure"); otelInsecure {
		loggerOptions = append(loggerOptions, otelprovider.WithLogInsecure())
		tracerOptions = append(tracerOptions, otelprovider.WithTraceInsecure())
	}

	if strings.Contains(otelEndpoint, "4317") {
		loggerOptions = append(loggerOptions, otelprovider.WithGrpcLogEndpoint(otelEndpoint))
		tracerOptions = append(tracerOptions, otelprovider.WithGrpcTraceEndpoint(otelEndpoint))
	} else if strings.Contains(otelEndpoint, "4318") {
		loggerOptions = append(loggerOptions, otelprovider.WithHttpLogEndpoint(otelEndpoint))
		tracerOptions = append(tracerOptions, otelprovider.WithHttpTraceEndpoint(otelEndpoint))
	}

	logProvider := otelprovider.NewLogger(loggerOptions...)
	traceProvider := otelprovider.NewTracer(tracerOptions...)

	// Initialize Logging
	var zapLogger *zap.Logger
	var err error
	if viper.GetBool("debug") {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Printf("failed to initialize logger: %v", err)
		os.Exit(1)
	}

	// Replace zap global
	undoZapGlobals := zap.ReplaceGlobals(zapLogger)

	// Redirect stdlib log to zap
	undoStdLogRedirect := zap.RedirectStdLog(zapLogger)

	// Create otelLogger
	otelZapLogger := otelzap.New(zapLogger,
		otelzap.WithCaller(true),
		otelzap.WithMinLevel(zap.InfoLevel),
		otelzap.WithAnnotateLevel(zap.WarnLevel),
		otelzap.WithErrorStatusLevel(zap.ErrorLevel),
		otelzap.WithStackTrace(false),
		otelzap.WithLoggerProvider(logProvider),
	)

	// Replace global otelZap logger
	undoOtelZapGlobals := otelzap.ReplaceGlobals(otelZapLogger)

	return func() {
		traceFlushErr := traceProvider.ForceFlush(context.Background())
		logFlushErr := logProvider.ForceFlush(context.Background())
		traceShutdownErr := traceProvider.Shutdown(context.Background())
		logShutdownErr := logProvider.Shutdown(context.Background())

		otelzap.L().Debug("observability shutdown",
			zap.Bool("trace_flush_ok", traceFlushErr == nil),
			zap.Bool("log_flush_ok", logFlushErr == nil),
			zap.Bool("trace_shutdown_ok", traceShutdownErr == nil),
			zap.Bool("log_shutdown_ok", logShutdownErr == nil),
			zap.NamedError("trace_flush_err", traceFlushErr),
			zap.NamedError("log_flush_err", logFlushErr),
			zap.NamedError("trace_shutdown_err", traceShutdownErr),
			zap.NamedError("log_shutdown_err", logShutdownErr),
		)

		undoStdLogRedirect()
		undoOtelZapGlobals()
		undoZapGlobals()
	}
}
