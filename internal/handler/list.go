package handler

import (
	"net/http"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/service"
	ws "github.com/dukerupert/basket/internal/websocket"
)

type ListHandler struct {
	lists *service.ListService
	hub   *ws.Hub
}

func NewListHandler(lists *service.ListService, hub *ws.Hub) *ListHandler {
	return &ListHandler{lists: lists, hub: hub}
}

type createListRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CommunityID *string `json:"community_id"`
	IsShared    bool    `json:"is_shared"`
}

type updateListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsShared    *bool   `json:"is_shared"`
	CommunityID *string `json:"community_id"`
}

type itemRequest struct {
	Name        *string `json:"name"`
	Quantity    *int    `json:"quantity"`
	Unit        *string `json:"unit"`
	IsPurchased *bool   `json:"is_purchased"`
}

type shareRequest struct {
	UserID string `json:"user_id"`
}

type moveRequest struct {
	ListID string `json:"list_id"`
}

type reorderRequest struct {
	SortOrder int `json:"sort_order"`
}

func (h *ListHandler) Mine(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.GetUserLists(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, lists)
}

func (h *ListHandler) Community(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.GetCommunityLists(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, lists)
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.lists.CreateList(r.Context(), model.CreateListParams{
		Name:        req.Name,
		Description: req.Description,
		CommunityID: req.CommunityID,
		IsShared:    req.IsShared,
	}, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionCreated, l.ID, nil))
	writeData(w, http.StatusCreated, l)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.lists.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, l)
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	l, err := h.lists.UpdateList(r.Context(), model.UpdateListParams{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Description: req.Description,
		IsShared:    req.IsShared,
		CommunityID: req.CommunityID,
	}, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionUpdated, l.ID, nil))
	writeData(w, http.StatusOK, l)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.lists.DeleteList(r.Context(), id, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionDeleted, id, nil))
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

func (h *ListHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.lists.GetListItems(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *ListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := model.AddItemParams{ListID: r.PathValue("id"), Quantity: 1}
	if req.Name != nil {
		params.Name = *req.Name
	}
	if req.Quantity != nil {
		params.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		params.Unit = *req.Unit
	}

	item, err := h.lists.AddItemToList(r.Context(), params, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcastItem(ws.ActionCreated, item)
	writeData(w, http.StatusCreated, item)
}

func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := model.UpdateItemParams{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		IsPurchased: req.IsPurchased,
	}
	item, err := h.lists.UpdateListItem(r.Context(), params, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	action := ws.ActionUpdated
	if params.OnlyPurchaseChange() {
		action = ws.ActionPurchased
	}
	h.broadcastItem(action, item)
	writeData(w, http.StatusOK, item)
}

func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.lists.RemoveItemFromList(r.Context(), id, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityItem, ws.ActionDeleted, id, nil))
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

func (h *ListHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.lists.MoveItemToList(r.Context(), r.PathValue("id"), req.ListID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcastItem(ws.ActionUpdated, item)
	writeData(w, http.StatusOK, item)
}

func (h *ListHandler) ReorderItem(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.lists.ReorderItem(r.Context(), r.PathValue("id"), req.SortOrder, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcastItem(ws.ActionUpdated, item)
	writeData(w, http.StatusOK, item)
}

func (h *ListHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner, err := h.lists.ShareList(r.Context(), r.PathValue("id"), req.UserID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionShared, owner.ListID, map[string]any{"user_id": owner.UserID}))
	writeData(w, http.StatusCreated, owner)
}

func (h *ListHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	listID, target := r.PathValue("id"), r.PathValue("user_id")
	if err := h.lists.UnshareList(r.Context(), listID, target, auth.UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionUnshared, listID, map[string]any{"user_id": target}))
	writeData(w, http.StatusOK, map[string]string{"list_id": listID, "user_id": target})
}

func (h *ListHandler) broadcastItem(action string, item *model.ListItem) {
	h.hub.Broadcast(ws.NewMessage(ws.EntityItem, action, item.ID, map[string]any{"list_id": item.ListID}))
}
