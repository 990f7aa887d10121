package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/storefront-cart/internal/cart-service/app"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/cartlog"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/domain"
	"github.com/jcmexdev/storefront-cart/internal/cart-service/ports"
	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors"
)

// Handler exposes cart sessions over HTTP.
type Handler struct {
	carts ports.CartService
}

func NewHandler(carts ports.CartService) *Handler {
	return &Handler{carts: carts}
}

// OpenCart creates a cart and starts loading it. The response is returned
// before loading finishes, so the cart is usually still LOADING.
func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	var req OpenCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	slog.InfoContext(r.Context(), "opening cart",
		"request_id", interceptors.RequestIDFromContext(r.Context()),
		"external_id", req.ExternalID,
	)

	snap, err := h.carts.Open(r.Context(), req.ExternalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/carts/"+snap.CartID)
	writeJSON(w, http.StatusAccepted, mapSnapshotToResponse(snap))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSnapshotToResponse(snap))
}

func (h *Handler) ReloadCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Reload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, mapSnapshotToResponse(snap))
}

func (h *Handler) CloseCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	snap, err := h.carts.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), *req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSnapshotToResponse(snap))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSnapshotToResponse(snap))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	item, snap, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "id"), domain.LineItem{
		SKU:       req.SKU,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Currency:  req.Currency,
		Image:     req.Image,
		Color:     req.Color,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddItemResponse{
		Item: mapItem(item),
		Cart: mapSnapshotToResponse(snap),
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.carts.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapHistory(entries))
}

// StreamCart sends the cart as server-sent events: one "cart" event with the
// current snapshot, then one per change until the client disconnects or the
// cart is closed.
func (h *Handler) StreamCart(w http.ResponseWriter, r *http.Request) {
	ch, cancel, err := h.carts.Subscribe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				_, _ = fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				_ = rc.Flush()
				return
			}
			payload, err := json.Marshal(mapSnapshotToResponse(snap))
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to encode cart event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: cart\ndata: %s\n\n", snap.Version, payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func mapSnapshotToResponse(s domain.Snapshot) CartResponse {
	items := make([]ItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = mapItem(it)
	}
	return CartResponse{
		ID:        s.CartID,
		State:     string(s.State),
		Version:   s.Version,
		Items:     items,
		IsEmpty:   len(s.Items) == 0,
		ItemCount: s.ItemCount,
		Subtotal:  s.Subtotal.StringFixed(2),
		Tax:       s.Tax.StringFixed(2),
		Total:     s.Total.StringFixed(2),
		Currency:  s.Currency,
		Display: TotalsDisplay{
			Subtotal: s.SubtotalDisplay(),
			Tax:      s.TaxDisplay(),
			Total:    s.TotalDisplay(),
		},
		LoadError: s.LoadError,
	}
}

func mapItem(it domain.LineItem) ItemResponse {
	return ItemResponse{
		ID:           it.ID,
		SKU:          it.SKU,
		Name:         it.Name,
		UnitPrice:    it.UnitPrice.StringFixed(2),
		Currency:     it.Currency,
		PriceDisplay: domain.FormatAmount(it.UnitPrice, it.Currency),
		Image:        it.Image,
		Color:        it.Color,
		Size:         it.Size,
		Quantity:     it.Quantity,
		LineTotal:    it.LineTotal().StringFixed(2),
	}
}

func mapHistory(entries []cartlog.Entry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			Action:    string(e.Action),
			ItemID:    e.ItemID,
			Quantity:  e.Quantity,
			Version:   e.Version,
			Total:     e.Total,
			Error:     e.Error,
			RequestID: e.RequestID,
			TraceID:   e.TraceID,
			At:        e.At.UTC().Format(time.RFC3339Nano),
		}
	}
	return out
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrCartNotFound):
		writeError(w, http.StatusNotFound, "cart_not_found", err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, domain.ErrNotReady):
		writeError(w, http.StatusConflict, "cart_loading", err.Error())
	case errors.Is(err, app.ErrAlreadyReady):
		writeError(w, http.StatusConflict, "cart_ready", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidItem):
		writeError(w, http.StatusUnprocessableEntity, "invalid_item", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
