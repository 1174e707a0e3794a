package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/happymalyo/elloms-crew-api/internal/domain"
	"github.com/happymalyo/elloms-crew-api/internal/domain/model"
	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/usecase"
)

type jobResponse struct {
	JobID             string           `json:"job_id"`
	ConversationID    string           `json:"conversation_id,omitempty"`
	Topic             string           `json:"topic"`
	Platform          string           `json:"platform,omitempty"`
	AdditionalContext string           `json:"additional_context,omitempty"`
	Status            string           `json:"status"`
	ImageStatus       string           `json:"image_status,omitempty"`
	Result            string           `json:"result,omitempty"`
	Images            []model.MediaRef `json:"images,omitempty"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	StartedAt         time.Time        `json:"started_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

func toJobResponse(j *model.CrewJob) jobResponse {
	resp := jobResponse{
		JobID:             j.ID,
		ConversationID:    j.ConversationID,
		Topic:             j.Topic,
		Platform:          j.Platform,
		AdditionalContext: j.AdditionalContext,
		Status:            string(j.Status),
		Result:            j.Result,
		Images:            j.Images,
		ErrorMessage:      j.ErrorMessage,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}
	if j.ImageStatus != model.ImageStatusNone {
		resp.ImageStatus = string(j.ImageStatus)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// ===== Auth =====

func registerHandler(userUC usecase.UserUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			FullName string `json:"full_name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		user, err := userUC.Register(r.Context(), req.Username, req.Email, req.FullName, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		}{user.ID, user.Username, user.Email})
	}
}

func loginHandler(userUC usecase.UserUseCase, auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		user, err := userUC.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		token, err := auth.Mint(user)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		}{token, "bearer"})
	}
}

// ===== Jobs =====

func submitJobHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Topic             string `json:"topic"`
			Platform          string `json:"platform"`
			AdditionalContext string `json:"additional_context"`
			ConversationID    string `json:"conversation_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		job, err := jobUC.Submit(r.Context(), UserID(r), usecase.SubmitInput{
			Topic:             req.Topic,
			Platform:          req.Platform,
			AdditionalContext: req.AdditionalContext,
			ConversationID:    req.ConversationID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		// The caller gets an acknowledgment; the outcome is observed by
		// polling the job id.
		writeJSON(w, http.StatusAccepted, struct {
			JobID  string `json:"job_id"`
			Status string `json:"status"`
		}{job.ID, string(job.Status)})
	}
}

func getJobHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobUC.Get(r.Context(), chi.URLParam(r, "jobID"), UserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func listJobsHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit := pagination(r)
		jobs, err := jobUC.List(r.Context(), UserID(r), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		data := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			data = append(data, toJobResponse(j))
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []jobResponse `json:"data"`
			Offset int           `json:"offset"`
			Count  int           `json:"count"`
		}{data, offset, len(data)})
	}
}

// ===== Conversations =====

func createConversationHandler(convUC usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		conv, err := convUC.Create(r.Context(), UserID(r), req.Title)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}

func listConversationsHandler(convUC usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit := pagination(r)
		convs, err := convUC.List(r.Context(), UserID(r), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []*model.Conversation `json:"data"`
			Offset int                   `json:"offset"`
			Count  int                   `json:"count"`
		}{convs, offset, len(convs)})
	}
}

func listMessagesHandler(convUC usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := convUC.Messages(r.Context(), chi.URLParam(r, "conversationID"), UserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data []*model.Message `json:"data"`
		}{msgs})
	}
}

func appendMessageHandler(convUC usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		msg, err := convUC.AppendMessage(r.Context(), chi.URLParam(r, "conversationID"), UserID(r), model.RoleUser, req.Content, nil)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// ===== Crew =====

func crewStatusHandler(crew adapter.CrewAdapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, crew.Describe())
	}
}
