// backend/src/handlers/assistant_handler.go
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/username/contazen/backend/src/config"
	"github.com/username/contazen/backend/src/database"
	"github.com/username/contazen/backend/src/logger"
	"github.com/username/contazen/backend/src/model"
	"github.com/username/contazen/backend/src/models"
	"github.com/username/contazen/backend/src/security/validation"
	"github.com/username/contazen/backend/src/services"
	"github.com/username/contazen/backend/src/utils"
)

type AssistantHandler struct {
	assistantService services.AssistantService
}

func NewAssistantHandler(assistantService services.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

type assistantMessagePayload struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	// Media is the base64-encoded attachment (receipt photo, voice note).
	Media     string `json:"media"`
	MediaMIME string `json:"media_mime"`
}

func (h *AssistantHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var payload assistantMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.SessionID == "" {
		payload.SessionID = uuid.New().String()
	}
	if err := validation.ValidateStringMaxLength(payload.SessionID, validation.MaxSessionIDLength, "session_id"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var media []byte
	if payload.Media != "" {
		decoded, err := base64.StdEncoding.DecodeString(payload.Media)
		if err != nil {
			sendJSONError(w, "media must be base64 encoded", http.StatusBadRequest)
			return
		}
		if int64(len(decoded)) > config.Cfg.MaxAttachmentBytes {
			sendJSONError(w, "Attachment too large", http.StatusRequestEntityTooLarge)
			return
		}
		media = decoded
	}

	reply, err := h.assistantService.HandleMessage(r.Context(), userID, payload.SessionID, payload.Text, media, payload.MediaMIME)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNothingToClassify):
			sendJSONError(w, "Message must contain text or an attachment", http.StatusBadRequest)
		case errors.Is(err, services.ErrClassificationBusy):
			sendJSONError(w, "Previous message still being processed, please wait", http.StatusConflict)
		case errors.Is(err, services.ErrClassifierUnavailable):
			sendJSONError(w, "Assistant is not available", http.StatusServiceUnavailable)
		default:
			logger.ErrorFromContext(r.Context(), "Assistant message failed", "error", err)
			sendJSONError(w, "Failed to process message", http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, map[string]any{"session_id": payload.SessionID, "reply": reply}, http.StatusOK)
}

func (h *AssistantHandler) HandleListStaged(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	staged, err := h.assistantService.ListStaged(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list staged transactions", "error", err)
		sendJSONError(w, "Failed to retrieve staged transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, staged, http.StatusOK)
}

type confirmStagedPayload struct {
	AccountID string `json:"account_id"`
}

func (h *AssistantHandler) HandleConfirmStaged(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	stagedID := chi.URLParam(r, "id")

	var payload confirmStagedPayload
	// Body is optional; confirming without an account leaves the
	// transaction unlinked.
	_ = json.NewDecoder(r.Body).Decode(&payload)

	tx, err := h.assistantService.ConfirmStaged(r.Context(), userID, stagedID, payload.AccountID)
	if err != nil {
		if errors.Is(err, services.ErrStagedNotFound) {
			sendJSONError(w, "Staged transaction not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, services.ErrAccountNotFound) {
			sendJSONError(w, "Account not found", http.StatusBadRequest)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to confirm staged transaction", "stagedID", stagedID, "error", err)
		sendJSONError(w, "Failed to confirm staged transaction", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, tx, http.StatusCreated)
}

func (h *AssistantHandler) HandleDiscardStaged(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	stagedID := chi.URLParam(r, "id")

	if err := h.assistantService.DiscardStaged(userID, stagedID); err != nil {
		if errors.Is(err, services.ErrStagedNotFound) {
			sendJSONError(w, "Staged transaction not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to discard staged transaction", "stagedID", stagedID, "error", err)
		sendJSONError(w, "Failed to discard staged transaction", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type keywordRulePayload struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

func (h *AssistantHandler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var payload keywordRulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Keyword = validation.SanitizeText(payload.Keyword)
	payload.Category = validation.SanitizeText(payload.Category)
	if err := validation.ValidateStringNotEmpty(payload.Keyword, "keyword"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(payload.Keyword, validation.MaxKeywordLength, "keyword"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringNotEmpty(payload.Category, "category"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rule := &models.KeywordRule{
		ID:       uuid.New().String(),
		UserID:   userID,
		Keyword:  payload.Keyword,
		Category: payload.Category,
	}
	if err := model.CreateKeywordRule(database.DB, rule); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create keyword rule", "error", err)
		sendJSONError(w, "Failed to create rule", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, rule, http.StatusCreated)
}

func (h *AssistantHandler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	rules, err := model.ListKeywordRules(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list keyword rules", "error", err)
		sendJSONError(w, "Failed to retrieve rules", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, rules, http.StatusOK)
}

func (h *AssistantHandler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	ruleID := chi.URLParam(r, "id")

	if err := model.DeleteKeywordRule(database.DB, userID, ruleID); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to delete keyword rule", "ruleID", ruleID, "error", err)
		sendJSONError(w, "Failed to delete rule", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
