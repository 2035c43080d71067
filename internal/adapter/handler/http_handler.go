package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

type HTTPHandler struct {
	log      *slog.Logger
	orders   *service.OrderService
	products *service.ProductService
	idem     port.IdempotencyStore // nil disables request deduplication
}

func NewHTTPHandler(log *slog.Logger, orders *service.OrderService, products *service.ProductService, idem port.IdempotencyStore) *HTTPHandler {
	return &HTTPHandler{
		log:      log,
		orders:   orders,
		products: products,
		idem:     idem,
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Post("/{id}/pay", h.payOrder)
			r.Delete("/{id}", h.cancelOrder)
		})
	})

	return r
}

type productRequest struct {
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
}

type productResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

type lineItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	RequestID string            `json:"request_id"`
	Items     []lineItemRequest `json:"items"`
}

type orderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Paid      bool                `json:"paid"`
	Items     []orderItemResponse `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "order must contain at least one item"})
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "each item needs a product_id and a positive quantity"})
			return
		}
		items = append(items, domain.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	var claimed string
	if h.idem != nil && req.RequestID != "" {
		ok, err := h.idem.SetIdempotency(r.Context(), req.RequestID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if !ok {
			h.writeError(w, domain.ErrDuplicateRequest)
			return
		}
		claimed = req.RequestID
	}

	order, err := h.orders.CreateOrder(r.Context(), items)
	if err != nil {
		// give the request id back so a corrected retry is not rejected
		if claimed != "" {
			if clearErr := h.idem.ClearIdempotency(r.Context(), claimed); clearErr != nil {
				h.log.Error("failed to release request id", "request_id", claimed, "err", clearErr)
			}
		}
		h.writeError(w, err)
		return
	}
	h.writeOrder(w, r, http.StatusCreated, order)
}

func (h *HTTPHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, order)
}

func (h *HTTPHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []domain.Order
		err    error
	)
	switch r.URL.Query().Get("paid") {
	case "":
		orders, err = h.orders.ListOrders(r.Context())
	case "true":
		orders, err = h.orders.ListOrdersByPaid(r.Context(), true)
	case "false":
		orders, err = h.orders.ListOrdersByPaid(r.Context(), false)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "paid must be true or false"})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		mapped, err := h.mapOrder(r, order)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp = append(resp, mapped)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) payOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.PayOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, order)
}

func (h *HTTPHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == nil || *req.Name == "" || req.Price == nil || req.StockQuantity == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name, price and stock_quantity are required"})
		return
	}
	if *req.Price < 0 || *req.StockQuantity < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "price and stock_quantity must be non-negative"})
		return
	}

	product, err := h.products.CreateProduct(r.Context(), domain.Product{
		Name:          *req.Name,
		Price:         *req.Price,
		StockQuantity: *req.StockQuantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProduct(product))
}

func (h *HTTPHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name must not be empty"})
		return
	}
	if req.Price != nil && *req.Price < 0 || req.StockQuantity != nil && *req.StockQuantity < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "price and stock_quantity must be non-negative"})
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), chi.URLParam(r, "id"), domain.ProductUpdate{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *HTTPHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *HTTPHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, mapProduct(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func mapProduct(p domain.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
	}
}

// writeOrder resolves product names and prices at mapping time; orders store
// product ids only.
func (h *HTTPHandler) writeOrder(w http.ResponseWriter, r *http.Request, status int, order domain.Order) {
	resp, err := h.mapOrder(r, order)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, status, resp)
}

func (h *HTTPHandler) mapOrder(r *http.Request, order domain.Order) (orderResponse, error) {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		product, err := h.products.GetProduct(r.Context(), item.ProductID)
		if err != nil {
			return orderResponse{}, err
		}
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
		})
	}
	return orderResponse{
		ID:        order.ID,
		CreatedAt: order.CreatedAt,
		Paid:      order.Paid,
		Items:     items,
	}, nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrOrderAlreadyPaid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrProductInUse), errors.Is(err, domain.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.Error("internal error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
