package handler

import (
	"net/http"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/service"
	ws "github.com/dukerupert/basket/internal/websocket"
)

type SessionHandler struct {
	sessions *service.SessionService
	hub      *ws.Hub
}

func NewSessionHandler(sessions *service.SessionService, hub *ws.Hub) *SessionHandler {
	return &SessionHandler{sessions: sessions, hub: hub}
}

type createSessionRequest struct {
	ListIDs []string `json:"list_ids"`
}

type endSessionRequest struct {
	Status                      model.SessionStatus `json:"status"`
	CreateNewListForUnpurchased bool                `json:"create_new_list_for_unpurchased"`
	NewListName                 string              `json:"new_list_name"`
}

type sessionListRequest struct {
	ListID string `json:"list_id"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), auth.UserID(r.Context()), req.ListIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	msgs := []ws.Message{ws.NewMessage(ws.EntitySession, ws.ActionStarted, sess.Session.ID, nil)}
	for _, id := range sess.ListIDs {
		msgs = append(msgs, ws.NewMessage(ws.EntityList, ws.ActionLocked, id, map[string]any{"session_id": sess.Session.ID}))
	}
	h.hub.BroadcastAll(msgs...)
	writeData(w, http.StatusCreated, sess)
}

func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetActiveSession(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sess)
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.GetSessionHistory(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sessions)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sess)
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = model.SessionCompleted
	}

	id := r.PathValue("id")
	res, err := h.sessions.EndSession(r.Context(), id, model.EndSessionParams{
		Status:                      req.Status,
		CreateNewListForUnpurchased: req.CreateNewListForUnpurchased,
		NewListName:                 req.NewListName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	msgs := []ws.Message{ws.NewMessage(ws.EntitySession, ws.ActionEnded, id, map[string]any{"status": res.Session.Status})}
	if res.NewList != nil {
		msgs = append(msgs, ws.NewMessage(ws.EntityList, ws.ActionCreated, res.NewList.ID, nil))
	}
	h.hub.BroadcastAll(msgs...)
	writeData(w, http.StatusOK, res)
}

func (h *SessionHandler) AddList(w http.ResponseWriter, r *http.Request) {
	var req sessionListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessions.AddListToSession(r.Context(), r.PathValue("id"), req.ListID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionLocked, req.ListID, map[string]any{"session_id": sess.Session.ID}))
	writeData(w, http.StatusOK, sess)
}

func (h *SessionHandler) RemoveList(w http.ResponseWriter, r *http.Request) {
	listID := r.PathValue("list_id")
	sess, err := h.sessions.RemoveListFromSession(r.Context(), r.PathValue("id"), listID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionUnlocked, listID, map[string]any{"session_id": sess.Session.ID}))
	writeData(w, http.StatusOK, sess)
}

func (h *SessionHandler) Consolidated(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.GetConsolidatedItems(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *SessionHandler) Purchased(w http.ResponseWriter, r *http.Request) {
	groups, err := h.sessions.GetItemsBySourceList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, groups)
}
