package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/postcraft/config"
	"github.com/mohammad-safakhou/postcraft/internal/store"
	"github.com/mohammad-safakhou/postcraft/internal/telemetry"
	"github.com/mohammad-safakhou/postcraft/internal/workflow"
	"github.com/mohammad-safakhou/postcraft/provider"
	"github.com/mohammad-safakhou/postcraft/tools/search"
	"github.com/mohammad-safakhou/postcraft/tools/search/duckduckgo"
	"github.com/mohammad-safakhou/postcraft/tools/search/serper"
	"github.com/mohammad-safakhou/postcraft/tools/search/wikipedia"
)

// PlanRequest is the input contract for the planning endpoint
type PlanRequest struct {
	Text      string `json:"text"`
	TopicHint string `json:"topic_hint,omitempty"`
	// Format selects the response rendering: "json" (default) or "text"
	Format string `json:"format,omitempty"`
}

// Run builds the pipeline from config and serves the HTTP API
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	orch, cache, tel, err := BuildOrchestrator(cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}
	defer tel.Shutdown()

	api := e.Group("/api")
	api.POST("/plan", func(c echo.Context) error {
		var req PlanRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}

		result, err := orch.Run(c.Request().Context(), req.Text, req.TopicHint)
		if err != nil {
			var short *workflow.InputTooShortError
			if errors.As(err, &short) {
				return echo.NewHTTPError(http.StatusBadRequest, short.Error())
			}
			return err
		}

		if req.Format == "text" {
			return c.String(http.StatusOK, workflow.RenderPlainText(result))
		}
		return c.JSON(http.StatusOK, result)
	})
	api.GET("/runs/:id", func(c echo.Context) error {
		if cache == nil {
			return echo.NewHTTPError(http.StatusNotFound, "run storage not configured")
		}
		var result workflow.WorkflowResult
		if !cache.GetRunSummary(c.Request().Context(), c.Param("id"), &result) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return c.JSON(http.StatusOK, &result)
	})
	api.GET("/runs/:id/export", func(c echo.Context) error {
		if cache == nil {
			return echo.NewHTTPError(http.StatusNotFound, "run storage not configured")
		}
		var result workflow.WorkflowResult
		if !cache.GetRunSummary(c.Request().Context(), c.Param("id"), &result) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return c.String(http.StatusOK, workflow.RenderPlainText(&result))
	})

	return e.Start(cfg.General.Listen)
}

// BuildOrchestrator assembles the LLM provider, search fallback chain,
// optional Redis cache and telemetry into a ready pipeline
func BuildOrchestrator(cfg *appconfig.Config) (*workflow.Orchestrator, *store.Cache, *telemetry.Telemetry, error) {
	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return nil, nil, nil, err
	}

	providers := buildSearchChain(cfg.Search)

	cache, err := store.NewCache(cfg.Storage.Redis)
	if err != nil {
		// Cache is an optimization; a missing Redis must not keep the
		// pipeline from starting.
		log.Printf("[SERVER] redis cache unavailable, continuing without: %v", err)
		cache = nil
	}

	tel := telemetry.NewTelemetry(cfg.Telemetry)
	return workflow.NewOrchestrator(cfg, llm, llm, providers, cache, tel), cache, tel, nil
}

// buildSearchChain orders providers so the configured one is consulted first
// and the keyless backends remain as fallbacks
func buildSearchChain(cfg appconfig.SearchConfig) []search.Provider {
	ddg := duckduckgo.New(cfg.Timeout, cfg.MaxRetries)
	wiki := wikipedia.New(cfg.WikipediaLang, cfg.Timeout, cfg.MaxRetries)

	var chain []search.Provider
	switch cfg.Provider {
	case "wikipedia":
		chain = []search.Provider{wiki, ddg}
	case "serper":
		chain = []search.Provider{serper.New(cfg.SerperAPIKey, cfg.Timeout, cfg.MaxRetries), ddg, wiki}
	default:
		chain = []search.Provider{ddg, wiki}
	}
	return chain
}
