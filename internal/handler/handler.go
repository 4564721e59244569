package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/middleware"
	"github.com/Dan9191/field-ledger/internal/models"
	"github.com/Dan9191/field-ledger/internal/service"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// NewRouter wires every route. active reports whether a driver is logged in.
func NewRouter(h *Handler, active func() bool, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logger(log), middleware.Recovery(log))

	// Public routes
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/register", h.Register).Methods("POST")

	// Protected routes
	a := r.PathPrefix("/").Subrouter()
	a.Use(middleware.AuthMiddleware(active))
	a.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	a.HandleFunc("/auth/me", h.Me).Methods("GET")

	a.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	a.HandleFunc("/history", h.History).Methods("GET")
	a.HandleFunc("/vehicles", h.Vehicles).Methods("GET")
	a.HandleFunc("/submissions", h.Submissions).Methods("GET")

	a.HandleFunc("/customers", h.SearchCustomers).Methods("GET")
	a.HandleFunc("/customers", h.AddCustomer).Methods("POST")
	a.HandleFunc("/customers/{id}", h.CustomerLedger).Methods("GET")
	a.HandleFunc("/customers/{id}/advance", h.AddAdvance).Methods("POST")

	a.HandleFunc("/sales", h.StartSale).Methods("POST")
	a.HandleFunc("/sales/{id}", h.Sale).Methods("GET")
	a.HandleFunc("/sales/{id}", h.DiscardSale).Methods("DELETE")
	a.HandleFunc("/sales/{id}/weights", h.AddSaleWeight).Methods("POST")
	a.HandleFunc("/sales/{id}/weights", h.ClearSaleWeight).Methods("DELETE")
	a.HandleFunc("/sales/{id}/payment", h.UpdateSalePayment).Methods("PUT")
	a.HandleFunc("/sales/{id}/invoice", h.SaleInvoice).Methods("GET")
	a.HandleFunc("/sales/{id}/submit", h.SubmitSale).Methods("POST")

	a.HandleFunc("/fuel/derive", h.DeriveFuel).Methods("POST")
	a.HandleFunc("/fuel", h.SubmitFuel).Methods("POST")
	a.HandleFunc("/buy", h.SubmitBuy).Methods("POST")
	a.HandleFunc("/palti", h.SubmitPalti).Methods("POST")
	a.HandleFunc("/weight-loss/mortality", h.SubmitMortality).Methods("POST")
	a.HandleFunc("/weight-loss/waste", h.SubmitWaste).Methods("POST")
	a.HandleFunc("/shop-buy", h.SubmitShopBuy).Methods("POST")

	a.HandleFunc("/notifications", h.Notifications).Methods("GET")
	a.HandleFunc("/notifications/read-all", h.MarkAllNotificationsRead).Methods("PATCH")
	a.HandleFunc("/notifications/{id}", h.MarkNotificationRead).Methods("PATCH")
	return r
}

// Login handles driver authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Register handles driver sign-up
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Register(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Registration submitted. Wait for admin approval."})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": h.svc.CurrentUser()})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// History lists recent entries, e.g. /history?type=WEIGHT_LOSS&subType=WASTE
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txType := models.TransactionType(q.Get("type"))
	if txType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "type is required"})
		return
	}
	txs, err := h.svc.History(r.Context(), txType, q.Get("subType"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) Vehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.Vehicles(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (h *Handler) Submissions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	subs, err := h.svc.Submissions(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.SearchCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	var form models.CustomerForm
	if !decode(w, r, &form) {
		return
	}
	c, err := h.svc.AddCustomer(r.Context(), form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) CustomerLedger(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.CustomerLedger(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) AddAdvance(w http.ResponseWriter, r *http.Request) {
	var form models.AdvanceForm
	if !decode(w, r, &form) {
		return
	}
	c, err := h.svc.AddAdvance(r.Context(), mux.Vars(r)["id"], form, idempotencyKey(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) StartSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customerId"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.StartSale(r.Context(), req.CustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) Sale(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Sale(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) DiscardSale(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DiscardSale(mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSaleWeight adds one weighed increment. Over-stock increments get 422 with the
// unchanged sale in the body's "sale" field.
func (h *Handler) AddSaleWeight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Increment string `json:"increment"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, added, err := h.svc.AddSaleWeight(mux.Vars(r)["id"], req.Increment)
	if err != nil {
		status, body := errorResponse(err)
		if v == nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, status, map[string]any{"error": body.Error, "sale": v})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "sale": v})
}

func (h *Handler) ClearSaleWeight(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ClearSaleWeight(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateSalePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate string `json:"rate"`
		Cash string `json:"cash"`
		UPI  string `json:"upi"`
	}
	if !decode(w, r, &req) {
		return
	}
	v, err := h.svc.UpdateSalePayment(mux.Vars(r)["id"], req.Rate, req.Cash, req.UPI)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SaleInvoice renders the invoice preview as HTML
func (h *Handler) SaleInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.SaleInvoice(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	html, err := inv.HTML()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) SubmitSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShareTo string `json:"shareTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body."})
		return
	}
	res, err := h.svc.SubmitSale(r.Context(), mux.Vars(r)["id"], req.ShareTo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) DeriveFuel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State ledger.FuelState `json:"state"`
		Field string           `json:"field"`
		Value string           `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	state, derived, err := h.svc.DeriveFuel(req.State, req.Field, req.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "derived": derived})
}

// submitEntry decodes a form and runs one of the Submit* flows
func submitEntry[F any](h *Handler, submit func(*service.Service, *http.Request, F, string) (*service.EntryResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form F
		if !decode(w, r, &form) {
			return
		}
		res, err := submit(h.svc, r, form, idempotencyKey(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (h *Handler) SubmitFuel(w http.ResponseWriter, r *http.Request) {
	submitEntry(h, func(s *service.Service, r *http.Request, f models.FuelForm, key string) (*service.EntryResult, error) {
		return s.SubmitFuel(r.Context(), f, key)
	})(w, r)
}

func (h *Handler) SubmitBuy(w http.ResponseWriter, r *http.Request) {
	submitEntry(h, func(s *service.Service, r *http.Request, f models.BuyForm, key string) (*service.EntryResult, error) {
		return s.SubmitBuy(r.Context(), f, key)
	})(w, r)
}

func (h *Handler) SubmitPalti(w http.ResponseWriter, r *http.Request) {
	submitEntry(h, func(s *service.Service, r *http.Request, f models.PaltiForm, key string) (*service.EntryResult, error) {
		return s.SubmitPalti(r.Context(), f, key)
	})(w, r)
}

func (h *Handler) SubmitMortality(w http.ResponseWriter, r *http.Request) {
	submitEntry(h, func(s *service.Service, r *http.Request, f models.MortalityForm, key string) (*service.EntryResult, error) {
		return s.SubmitMortality(r.Context(), f, key)
	})(w, r)
}

func (h *Handler) SubmitWaste(w http.ResponseWriter, r *http.Request) {
	submitEntry(h, func(s *service.Service, r *http.Request, f models.WasteForm, key string) (*service.EntryResult, error) {
		return s.SubmitWaste(r.Context(), f, key)
	})(w, r)
}

func (h *Handler) SubmitShopBuy(w http.ResponseWriter, r *http.Request) {
	submitEntry(h, func(s *service.Service, r *http.Request, f models.ShopBuyForm, key string) (*service.EntryResult, error) {
		return s.SubmitShopBuy(r.Context(), f, key)
	})(w, r)
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unreadOnly") == "true"
	ns, err := h.svc.Notifications(r.Context(), unread)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkNotificationRead(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkAllNotificationsRead(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
