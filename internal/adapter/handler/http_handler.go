package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/biosales/agent-sales/internal/core/domain"
	"github.com/biosales/agent-sales/internal/core/service"
	"github.com/biosales/agent-sales/internal/port"
)

// HTTPHandler exposes the settlement engine and the pass-through CRUD
// surfaces. It parses, validates shape, maps errors to statuses; all sale
// decisions happen in the engine.
type HTTPHandler struct {
	engine *service.SettlementEngine
	stock  port.StockStore
	txlog  port.TransactionLog
	agents port.AgentStore
	idem   port.IdempotencyStore // optional; nil disables the duplicate gate
}

func NewHTTPHandler(engine *service.SettlementEngine, stock port.StockStore, txlog port.TransactionLog, agents port.AgentStore, idem port.IdempotencyStore) *HTTPHandler {
	return &HTTPHandler{engine: engine, stock: stock, txlog: txlog, agents: agents, idem: idem}
}

// NewRouter wires all routes with the standard middleware stack.
func NewRouter(h *HTTPHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", h.HealthCheck)

	r.Post("/register", h.RegisterAgent)
	r.Post("/login", h.Login)
	r.Get("/agents", h.ListAgents)
	r.Put("/agents/{id}", h.UpdateAgent)
	r.Delete("/agents/{id}", h.DeleteAgent)

	r.Post("/stock", h.AddStock)
	r.Get("/stock", h.ListStock)
	r.Put("/stock/{id}", h.UpdateStock)
	r.Delete("/stock/{id}", h.DeleteStock)

	r.Post("/sell", h.Sell)
	r.Get("/transactions", h.ListTransactions)

	return r
}

type sellRequest struct {
	RequestID string `json:"request_id"`
	StockID   string `json:"stock_id"`
	Quantity  int    `json:"quantity"`
}

type transactionResponse struct {
	ID         string          `json:"id"`
	StockID    string          `json:"stock_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Timestamp  time.Time       `json:"transaction_date"`
}

func (h *HTTPHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StockID == "" {
		writeError(w, http.StatusBadRequest, "stock_id is required")
		return
	}

	if h.idem != nil && req.RequestID != "" {
		ok, err := h.idem.SetIdempotency(r.Context(), req.RequestID)
		if err != nil {
			writeError(w, http.StatusBadGateway, "idempotency check failed")
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, domain.ErrDuplicateRequest.Error())
			return
		}
	}

	tx, err := h.engine.Sell(r.Context(), req.StockID, req.Quantity)
	if err != nil {
		writeError(w, sellStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "sale recorded successfully",
		"transaction": toTransactionResponse(*tx),
	})
}

// sellStatus maps each settlement outcome to a distinct status so callers
// can tell a lost race from a bad request from a transient fault.
func sellStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStockNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	case domain.IsStorageError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type transactionViewResponse struct {
	transactionResponse
	ProductName       string          `json:"product_name"`
	UnitPrice         decimal.Decimal `json:"price"`
	RemainingQuantity int             `json:"remaining_quantity"`
}

// ListTransactions joins the transaction log with current stock quantities
// to produce the remaining-stock-at-time-of-query view.
func (h *HTTPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.txlog.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load transactions")
		return
	}

	views := make([]transactionViewResponse, 0, len(txs))
	for _, tx := range txs {
		view := transactionViewResponse{transactionResponse: toTransactionResponse(tx)}
		item, err := h.stock.Get(r.Context(), tx.StockID)
		if err == nil {
			view.ProductName = item.Name
			view.UnitPrice = item.UnitPrice
			view.RemainingQuantity = item.Quantity
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

type stockRequest struct {
	Name      string          `json:"product_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

type stockResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"product_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *HTTPHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Quantity < 0 || req.UnitPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	now := time.Now().UTC()
	item := domain.StockItem{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.stock.Create(r.Context(), &item); err != nil {
		writeError(w, http.StatusBadGateway, "failed to add stock")
		return
	}
	writeJSON(w, http.StatusCreated, toStockResponse(item))
}

func (h *HTTPHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.stock.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load stock")
		return
	}
	out := make([]stockResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toStockResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 0 || req.UnitPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "quantity and price must be non-negative")
		return
	}

	item := domain.StockItem{
		ID:        chi.URLParam(r, "id"),
		Name:      req.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	}
	if err := h.stock.Update(r.Context(), &item); err != nil {
		if errors.Is(err, domain.ErrStockNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to update stock")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "stock updated successfully"})
}

func (h *HTTPHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	if err := h.stock.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrStockNotFound) {
			writeError(w, http.StatusNotFound, "stock not found")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to delete stock")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "stock deleted successfully"})
}

type agentRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	NationalID    string `json:"nationalId"`
	Role          string `json:"role"`
	BiometricData string `json:"biometricData"`
}

type agentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	NationalID string `json:"nationalId"`
	Role       string `json:"role"`
}

func (h *HTTPHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.NationalID == "" {
		writeError(w, http.StatusBadRequest, "name, email and nationalId are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NationalID), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	agent := domain.Agent{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Email:         req.Email,
		NationalID:    req.NationalID,
		Role:          req.Role,
		BiometricData: req.BiometricData,
		PasswordHash:  string(hash),
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.agents.Create(r.Context(), &agent); err != nil {
		writeError(w, http.StatusBadGateway, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "agent registered successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` // the agent's national id
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.agents.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		writeError(w, http.StatusBadGateway, "login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(agent.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid national id")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login successful",
		"role":    agent.Role,
	})
}

func (h *HTTPHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.List(r.Context(), "agent")
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load agents")
		return
	}
	out := make([]agentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, agentResponse{ID: a.ID, Name: a.Name, Email: a.Email, NationalID: a.NationalID, Role: a.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NationalID), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	agent := domain.Agent{
		ID:           chi.URLParam(r, "id"),
		Name:         req.Name,
		Email:        req.Email,
		NationalID:   req.NationalID,
		Role:         req.Role,
		PasswordHash: string(hash),
	}
	if err := h.agents.Update(r.Context(), &agent); err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusBadGateway, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "agent updated successfully"})
}

func (h *HTTPHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusBadGateway, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "agent deleted successfully"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toTransactionResponse(tx domain.SaleTransaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		StockID:    tx.StockID,
		Quantity:   tx.Quantity,
		TotalPrice: tx.TotalPrice,
		Timestamp:  tx.Timestamp,
	}
}

func toStockResponse(item domain.StockItem) stockResponse {
	return stockResponse{
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
