// Package server serves the status of a worker & its queue over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/pkg/api/http/common"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

const (
	wait = 30 * time.Second
)

// Queue is what we need to report on a queue
type Queue interface {
	Status(ctx context.Context) (*structs.Stats, error)
	List(ctx context.Context) ([]*task.Task, error)
}

// Monitor is what we need to report on a worker
type Monitor interface {
	Snapshot() *structs.WorkerStats
}

type Server struct {
	addr       string
	debug      bool
	queue      Queue
	monitor    Monitor
	httpserver *http.Server
}

func NewServer(addr string, debug bool, q Queue, mon Monitor) *Server {
	return &Server{
		addr:    addr,
		debug:   debug,
		queue:   q,
		monitor: mon,
	}
}

// Router returns the routes we serve.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(common.API_HEALTH, s.Health).Methods(http.MethodGet)
	router.HandleFunc(common.API_WORKER, s.Worker).Methods(http.MethodGet)
	router.HandleFunc(common.API_QUEUE, s.Queue).Methods(http.MethodGet)
	router.HandleFunc(common.API_TASKS, s.Tasks).Methods(http.MethodGet)

	if s.debug {
		log.Debug().Msg("debug enabled, adding per-request logging middleware")
		router.Use(loggingMiddleware)
	}
	return router
}

// Serve until ctx is done, then shut down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.httpserver = &http.Server{
		Handler:      s.Router(),
		Addr:         s.addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("listening")
		errs <- s.httpserver.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	err := s.httpserver.Shutdown(shutdown)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(&common.HealthResponse{OK: true})
}

func (s *Server) Worker(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		http.Error(w, "no worker running", http.StatusNotFound)
		return
	}
	err := json.NewEncoder(w).Encode(s.monitor.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) Queue(w http.ResponseWriter, r *http.Request) {
	st, err := s.queue.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}
	err = json.NewEncoder(w).Encode(st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) Tasks(w http.ResponseWriter, r *http.Request) {
	q := &query{}
	err := unmarshalQuery(w, r, q)
	if err != nil {
		return
	}

	tasks, err := s.queue.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), mapError(err))
		return
	}

	items := []*common.TaskInfo{}
	for _, t := range tasks {
		if q.Tag != "" && t.Tag() != q.Tag {
			continue
		}
		items = append(items, &common.TaskInfo{ID: t.ID(), Tag: t.Tag()})
		if len(items) >= q.Limit {
			break
		}
	}
	if s.debug {
		log.Debug().Str("url", r.URL.String()).Int("items", len(items)).Msg("returned items")
	}

	err = json.NewEncoder(w).Encode(items)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
