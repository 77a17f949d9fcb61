package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/service"
)

// --- tasks ---

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.app.Tasks.List(r.Context(), userIDFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskViews(tasks))
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	task := &domain.Task{
		UserID:      userIDFrom(r),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := s.app.Tasks.Create(r.Context(), task); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTaskView(task))
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	task, err := s.app.Tasks.Complete(r.Context(), userIDFrom(r), chi.URLParam(r, "taskID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTaskView(task))
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Tasks.Delete(r.Context(), userIDFrom(r), chi.URLParam(r, "taskID")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- sessions ---

type startSessionRequest struct {
	TaskID *string `json:"taskId"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	sess, err := s.app.Sessions.Start(r.Context(), userIDFrom(r), req.TaskID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toSessionView(sess))
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Sessions.Stop(r.Context(), userIDFrom(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionView(sess))
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.app.Sessions.History(r.Context(), userIDFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionViews(sessions))
}

// --- store ---

type storeView struct {
	Catalog []service.StoreItem `json:"catalog"`
	User    userView            `json:"user"`
}

type purchaseRequest struct {
	Kind string `json:"kind"`
}

type amountRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) handleStoreGet(w http.ResponseWriter, r *http.Request) {
	u, err := s.app.Rewards.Balance(r.Context(), userIDFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, storeView{Catalog: service.StoreCatalog(), User: toUserView(u)})
}

func (s *Server) handleStorePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	u, err := s.app.Rewards.Purchase(r.Context(), userIDFrom(r), domain.ItemKind(req.Kind))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleStoreSpend(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	u, err := s.app.Rewards.Spend(r.Context(), userIDFrom(r), req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleStoreAward(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	u, err := s.app.Rewards.Award(r.Context(), userIDFrom(r), req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

// --- pet ---

type feedRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) handlePetGet(w http.ResponseWriter, r *http.Request) {
	u, err := s.app.Pets.Get(r.Context(), userIDFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handlePetFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	u, err := s.app.Pets.Feed(r.Context(), userIDFrom(r), domain.ItemKind(req.Kind))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handlePetRenew(w http.ResponseWriter, r *http.Request) {
	u, err := s.app.Pets.Renew(r.Context(), userIDFrom(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

// --- activity ---

type activityRequest struct {
	Kind      string     `json:"kind"`
	Context   string     `json:"context"`
	Timestamp *time.Time `json:"timestamp"`
}

func (s *Server) handleActivityReport(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	event := &domain.ActivityEvent{
		UserID:  userIDFrom(r),
		Kind:    domain.ActivityKind(req.Kind),
		Context: req.Context,
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	}
	if err := s.app.Activity.Record(r.Context(), event); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": event.ID})
}
