package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"healthchat-relay/internal/models"
)

// chatService is the part of services.ChatService the handlers use.
type chatService interface {
	Greeting() string
	HandlePrompt(ctx context.Context, conversationID, prompt string) (models.Reply, error)
	HandleStatelessPrompt(ctx context.Context, prompt string) (models.Reply, error)
	History(ctx context.Context, conversationID string) ([]models.ConversationTurn, error)
	Reset(ctx context.Context, conversationID string) error
}

// maxChatBodyBytes bounds a chat request body.
const maxChatBodyBytes = 1 << 20

type ChatHandler struct {
	chatService chatService
}

func NewChatHandler(chatService chatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.WelcomeResponse{Message: h.chatService.Greeting()})
}

// Chat answers a prompt within a conversation. A body carrying only
// "userInput" is answered without history.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Prompt == "" && req.UserInput != "" {
		reply, err := h.chatService.HandleStatelessPrompt(r.Context(), req.UserInput)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, models.StatelessChatResponse{Response: reply.Text})
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	reply, err := h.chatService.HandlePrompt(r.Context(), conversationID, req.Prompt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Bot:            reply.Text,
		ConversationID: conversationID,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	turns, err := h.chatService.History(r.Context(), conversationID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if turns == nil {
		turns = []models.ConversationTurn{}
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{
		ConversationID: conversationID,
		Turns:          turns,
	})
}

func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.Reset(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
