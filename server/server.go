// Package server exposes the ledger's read API and the append write API
// over HTTP. It is a thin adapter: every handler borrows the ledger's
// operations facade under the read lock, renders JSON and returns. Appends
// go through the ledger's write path followed by a reload.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/robinvdvleuten/zhang/ledger"
)

// Server serves the REST API over one ledger.
type Server struct {
	Addr string
	Port int
	// Auth is the "username:password" credential for basic auth; empty
	// disables authentication.
	Auth string
	// EnableSQL exposes the POST /api/sql projection endpoint.
	EnableSQL bool
	Version   string

	ledger *ledger.Ledger
}

// New creates a server over a loaded ledger.
func New(l *ledger.Ledger, addr string, port int) *Server {
	return &Server{Addr: addr, Port: port, ledger: l}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	if s.Auth != "" {
		r.Use(s.basicAuth)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", s.handleInfo)
		r.Get("/errors", s.handleErrors)
		r.Get("/options", s.handleOptions)
		r.Get("/accounts", s.handleAccounts)
		r.Get("/accounts/{account}/journals", s.handleAccountJournals)
		r.Get("/accounts/{account}/balances", s.handleAccountBalances)
		r.Get("/accounts/{account}/documents", s.handleAccountDocuments)
		r.Get("/commodities", s.handleCommodities)
		r.Get("/commodities/{name}", s.handleCommodityDetail)
		r.Get("/journals", s.handleJournals)
		r.Get("/documents", s.handleDocuments)
		r.Get("/budgets", s.handleBudgets)
		r.Get("/budgets/{name}/{interval}", s.handleBudgetDetail)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/report/balance-sheet", s.handleBalanceSheet)
		r.Get("/report/income-statement", s.handleIncomeStatement)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Post("/reload", s.handleReload)
		if s.EnableSQL {
			r.Post("/sql", s.handleSQL)
		}
	})

	return r
}

// Start runs the server until the context is cancelled, watching the
// ledger's source files for changes when watch is enabled.
func (s *Server) Start(ctx context.Context, watch bool) error {
	if watch {
		stop, err := s.watchSources(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("cannot watch ledger sources, live reload disabled")
		} else {
			defer stop()
		}
	}

	addr := fmt.Sprintf("%s:%d", s.Addr, s.Port)
	httpServer := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("serving ledger")
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// watchSources reloads the ledger when any visited file changes on disk.
func (s *Server) watchSources(ctx context.Context) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]bool)
	for _, file := range s.ledger.VisitedFiles() {
		dirs[filepath.Dir(filepath.Join(s.ledger.Entry, filepath.FromSlash(file)))] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Debug().Str("file", event.Name).Msg("source changed, reloading")
				if err := s.ledger.Reload(ctx); err != nil {
					log.Error().Err(err).Msg("reload failed")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}

// basicAuth guards every route with the configured credential.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	expectedUser, expectedPass, _ := strings.Cut(s.Auth, ":")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(expectedUser)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(expectedPass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="zhang"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
