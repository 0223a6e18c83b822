package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/statkit/gin-statsd/internal/app"
	"github.com/statkit/gin-statsd/internal/emit"
	"github.com/statkit/gin-statsd/pkg/logger"
	"github.com/statkit/gin-statsd/pkg/metrics"
	"github.com/statkit/gin-statsd/pkg/middleware"
	"github.com/statkit/gin-statsd/pkg/taskstat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gin-statsd-demo", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	var emitter metrics.Emitter
	var promRegistry *prometheus.Registry
	if cfg.Statsd.TrackMiddleware {
		statsdEmitter, err := metrics.NewStatsdEmitter(cfg.Statsd.Addr(), "", statsdOptions(cfg)...)
		if err != nil {
			return fmt.Errorf("initialise statsd emitter: %w", err)
		}

		emitter = statsdEmitter
		if cfg.Monitoring.Prometheus.Enabled {
			promRegistry = prometheus.NewRegistry()
			emitter = metrics.NewMultiEmitter(statsdEmitter, metrics.NewPromEmitter(promRegistry, "ginstatsd"))
		}

		log.Info("request tracking enabled",
			zap.String("statsd", cfg.Statsd.Addr()),
			zap.String("prefix", cfg.Statsd.Prefix),
			zap.Bool("prometheus", promRegistry != nil),
		)
	} else {
		log.Info("request tracking disabled")
	}

	if emitter != nil {
		defer func() {
			if err := emitter.Close(); err != nil {
				log.Warn("failed to close metrics emitter", zap.Error(err))
			}
		}()
	}

	reporter := taskstat.New(emitter, cfg.Statsd.Prefix)
	scheduler := cron.New()
	if cfg.Jobs.Heartbeat != "" {
		job := reporter.JobFunc("heartbeat", func(context.Context) error {
			if emitter == nil {
				return nil
			}
			name := emit.Join(cfg.Statsd.Prefix, "goroutines")
			return emitter.Gauge(name, int64(runtime.NumGoroutine()), nil)
		})
		if _, err := scheduler.AddJob(cfg.Jobs.Heartbeat, job); err != nil {
			return fmt.Errorf("schedule heartbeat: %w", err)
		}
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	router := buildRouter(middleware.Options{Emitter: emitter, Prefix: cfg.Statsd.Prefix}, promRegistry, cfg.Monitoring.Prometheus.Endpoint)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func statsdOptions(cfg *app.Config) []metrics.StatsdOption {
	opts := []metrics.StatsdOption{metrics.WithSampleRate(cfg.Statsd.SampleRate)}
	if cfg.Statsd.Buffered {
		opts = append(opts, metrics.WithBufferedClient(cfg.Statsd.FlushInterval))
	}
	return opts
}

func buildRouter(opts middleware.Options, promRegistry *prometheus.Registry, promEndpoint string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(middleware.Track(opts))
	r.Use(requestLogger())
	r.Use(gin.Recovery())
	r.Use(middleware.PhaseTimer())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(50 * time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"waited": "50ms"})
	})
	r.GET("/api/users/:id", getUser)
	r.GET("/boom", func(c *gin.Context) {
		panic("boom requested")
	})

	if promRegistry != nil {
		r.GET(promEndpoint, gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))
	}

	return r
}

// requestLogger writes a concise structured access log for each request and
// tags the response with a request id.
func requestLogger() gin.HandlerFunc {
	log := logger.WithModule("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

var demoUsers = map[string]gin.H{
	"1": {"id": "1", "name": "Ada"},
	"2": {"id": "2", "name": "Grace"},
}

// getUser demonstrates per-request timers and counters from a handler.
func getUser(c *gin.Context) {
	reg := middleware.Timings(c)

	stop := reg.Time("db")
	user, found := lookupUser(c.Param("id"))
	stop()

	if !found {
		middleware.Counters(c).Incr("user.miss")
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	defer reg.Time("render")()
	middleware.Counters(c).Incr("user.hit")
	c.JSON(http.StatusOK, user)
}

func lookupUser(id string) (gin.H, bool) {
	// Simulated lookup cost so the db timer has something to measure.
	time.Sleep(2 * time.Millisecond)
	user, ok := demoUsers[id]
	return user, ok
}
