package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const requestIDHeader = "X-Request-Id"

// ===== middleware =====

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func accessLogMiddleware(next http.Handler) http.Handler {
	log := logComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(logrus.Fields{
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"duration":  time.Since(start).String(),
			"requestId": r.Header.Get(requestIDHeader),
		}).Infof("%s %s", r.Method, r.URL.Path)
	})
}

// ===== envelope adapter =====

// envelopeRequest converts an incoming HTTP request into the flat envelope
// the proxy routes on. Repeated query keys and headers keep their first
// value only.
func envelopeRequest(r *http.Request) (Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Body:    string(body),
		Query:   flattenValues(r.URL.Query()),
		Headers: flattenHeader(r.Header),
	}, nil
}

func flattenValues(values url.Values) map[string]string {
	flat := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			flat[key] = vals[0]
		} else {
			flat[key] = ""
		}
	}
	return flat
}

func flattenHeader(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key, vals := range header {
		if len(vals) > 0 {
			flat[key] = vals[0]
		}
	}
	return flat
}

func writeEnvelopeResponse(w http.ResponseWriter, resp Response) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

func envelopeHandler(proxy *Proxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := envelopeRequest(r)
		if err != nil {
			writeEnvelopeResponse(w, jsonResponse(http.StatusBadRequest, errorBody("Invalid request body")))
			return
		}
		writeEnvelopeResponse(w, proxy.HandleRequest(r.Context(), req))
	}
}

// ===== handler wiring =====

func newHTTPHandler(config *Config, proxy *Proxy, overrides *overrideWatcher) (http.Handler, error) {
	baseURL, err := url.Parse(config.TessProxy.BaseURL)
	if err != nil {
		return nil, err
	}

	manifestCfg := config.Manifest
	if manifestCfg == nil {
		manifestCfg = &ManifestConfig{
			Name:    config.TessProxy.Name,
			Version: config.TessProxy.Version,
		}
	}

	options := config.TessProxy.Options
	if options == nil {
		options = &ProxyOptions{}
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(requestIDMiddleware)
	if options.LogEnabled.OrElse(true) {
		router.Use(accessLogMiddleware)
	}
	if options.CORSEnabled.OrElse(true) {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}))
	}
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/.well-known/mcp/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		doc := buildManifestDocument(manifestCfg, baseURL, r, overrides.Current())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})

	// Everything else flows through the envelope router, which owns the
	// route table and all error translation.
	handler := envelopeHandler(proxy)
	router.Handle("/*", handler)
	router.NotFound(handler)
	router.MethodNotAllowed(handler)

	return router, nil
}

// ===== main HTTP server =====

func startHTTPServer(config *Config, proxy *Proxy, overrides *overrideWatcher) error {
	handler, err := newHTTPHandler(config, proxy, overrides)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:    config.TessProxy.Addr,
		Handler: handler,
	}

	log := logComponent("http")
	eg.Go(func() error {
		log.Infof("listening on %s", config.TessProxy.Addr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})
	if overrides != nil {
		eg.Go(func() error {
			return overrides.Watch(ctx)
		})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case <-sig:
		log.Infof("shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	return eg.Wait()
}
