// Package buildstub serves a local stand-in for the rapyuta.io project and
// build APIs. Builds do no work: each one reports BuildInProgress for a fixed
// number of status reads and then settles.
package buildstub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vyvo/iobuilds/pkg/auth"
	"github.com/vyvo/iobuilds/pkg/config"
	"github.com/vyvo/iobuilds/pkg/rapyuta"
)

// Server implements the stub HTTP API on top of a Store.
type Server struct {
	store         Store
	authToken     string
	projects      []rapyuta.Project
	completeAfter int
	failureMarker string
}

// ProjectGUID derives the stable identifier the stub assigns to a project name.
func ProjectGUID(name string) string {
	return "project-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("buildstub/"+name)).String()
}

func NewServer(store Store, cfg config.StubConfig) *Server {
	projects := make([]rapyuta.Project, 0)
	for _, name := range cfg.ProjectNames() {
		projects = append(projects, rapyuta.Project{Name: name, GUID: ProjectGUID(name)})
	}
	return &Server{
		store:         store,
		authToken:     cfg.AuthToken,
		projects:      projects,
		completeAfter: cfg.CompleteAfter,
		failureMarker: cfg.FailureMarker,
	}
}

// Handler returns the router for the stub API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/project/list", s.handleListProjects)

		r.Route("/build", func(r chi.Router) {
			r.Use(s.requireProject)
			r.Post("/", s.handleCreateBuild)
			r.Get("/", s.handleListBuilds)
			r.Put("/operation/trigger", s.handleTrigger)
			r.Get("/{guid}", s.handleGetBuild)
		})
	})

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, err := auth.BearerToken(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if token != s.authToken {
			respondError(w, http.StatusUnauthorized, "invalid auth token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireProject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		project := r.Header.Get("project")
		if !s.knownProject(project) {
			respondError(w, http.StatusForbidden, "unknown project "+project)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) knownProject(guid string) bool {
	for _, p := range s.projects {
		if p.GUID == guid {
			return true
		}
	}
	return false
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.projects, http.StatusOK)
}

func (s *Server) handleCreateBuild(w http.ResponseWriter, r *http.Request) {
	var payload rapyuta.CreateBuildRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	info := payload.BuildInfo
	if payload.BuildName == "" || info.StrategyType == "" || info.Repository == "" || info.Architecture == "" {
		respondError(w, http.StatusBadRequest, "buildName, strategyType, repository, and architecture are required")
		return
	}

	project := r.Header.Get("project")
	rec, err := s.store.Create(Record{
		ProjectID: project,
		Build: rapyuta.Build{
			GUID:              "build-" + uuid.NewString(),
			BuildName:         payload.BuildName,
			Status:            rapyuta.StatusInProgress,
			BuildGeneration:   1,
			Secret:            payload.Secret,
			DockerPullSecrets: payload.DockerPullSecrets,
			BuildInfo:         info,
			ProjectID:         project,
		},
	})
	if errors.Is(err, ErrBuildExists) {
		respondError(w, http.StatusConflict, "build with name "+payload.BuildName+" already exists")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, rec.Build, http.StatusOK)
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Header.Get("project"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	builds := make([]rapyuta.Build, 0, len(records))
	for _, rec := range records {
		builds = append(builds, rec.Build)
	}
	respondJSON(w, builds, http.StatusOK)
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	rec, err := s.store.Update(r.Header.Get("project"), guid, s.advance)
	if errors.Is(err, ErrBuildNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, rec.Build, http.StatusOK)
}

// advance counts a status read and settles the build once enough reads happened.
func (s *Server) advance(rec *Record) error {
	if rec.Build.Status != rapyuta.StatusInProgress {
		return nil
	}
	rec.Reads++
	if rec.Reads < s.completeAfter {
		return nil
	}
	if s.failureMarker != "" && strings.Contains(rec.Build.BuildName, s.failureMarker) {
		rec.Build.Status = rapyuta.StatusFailed
	} else {
		rec.Build.Status = rapyuta.StatusComplete
	}
	return nil
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var payload rapyuta.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	project := r.Header.Get("project")
	resp := rapyuta.TriggerResponse{BuildOperationResponse: make([]rapyuta.BuildOperationResult, 0, len(payload.BuildOperationInfo))}
	for _, op := range payload.BuildOperationInfo {
		rec, err := s.store.Update(project, op.BuildGUID, func(rec *Record) error {
			if rec.Build.Status == rapyuta.StatusInProgress {
				return errors.New("build is already in progress")
			}
			rec.Build.BuildGeneration++
			rec.Build.Status = rapyuta.StatusInProgress
			rec.Reads = 0
			return nil
		})
		result := rapyuta.BuildOperationResult{BuildGUID: op.BuildGUID}
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Success = true
			result.BuildGenerationNumber = rec.Build.BuildGeneration
		}
		resp.BuildOperationResponse = append(resp.BuildOperationResponse, result)
	}
	respondJSON(w, resp, http.StatusOK)
}

func respondJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, map[string]string{"error": message}, status)
}
