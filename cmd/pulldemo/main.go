// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command pulldemo serves a chunk-at-a-time streaming HTTP endpoint backed
// directly by the pull interpreter, demonstrating that Compile's fold
// callback really does run once per emitted chunk rather than after
// buffering the whole program.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"code.hybscloud.com/pull"
	"code.hybscloud.com/pull/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/stream/:n", streamHandler(logger, tp.Tracer("pulldemo"), mp.Meter("pulldemo")))

	logger.Info().Str("addr", cfg.ListenAddr).Msg("pulldemo: listening")
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal().Err(err).Msg("pulldemo: server exited")
	}
}

func streamHandler(logger zerolog.Logger, tracer trace.Tracer, meter metric.Meter) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("n"))
		if err != nil || n < 0 {
			c.String(http.StatusBadRequest, "invalid n")
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "streaming unsupported")
			return
		}

		c.Header("Content-Type", "application/x-ndjson")
		c.Status(http.StatusOK)

		root := pull.NewRootScope(pull.WithLogger(logger), pull.WithTracer(tracer), pull.WithMeter(meter))
		program := pull.Range(0, n)

		_, err = pull.Compile(c.Request.Context(), program, root, pull.Unit{}, func(_ pull.Unit, chunk pull.Chunk[int]) (pull.Unit, error) {
			line, mErr := json.Marshal(chunk)
			if mErr != nil {
				return pull.Unit{}, mErr
			}
			if _, wErr := c.Writer.Write(append(line, '\n')); wErr != nil {
				return pull.Unit{}, wErr
			}
			flusher.Flush()
			return pull.Unit{}, nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("pulldemo: stream compile failed")
		}
	}
}
