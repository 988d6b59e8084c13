package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/observability"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/storage"
)

type createPoolRequest struct {
	Creator string `json:"creator"`
}

type initializeRequest struct {
	ReserveAmount uint64 `json:"reserve_amount"`
	Initiator     string `json:"initiator"`
}

type depositRequest struct {
	ReserveAmount       uint64 `json:"reserve_amount"`
	Depositor           string `json:"depositor"`
	USDReference        uint64 `json:"usd_reference"`
	MaturationReference uint64 `json:"maturation_reference"`
	MinUnitsExpected    uint64 `json:"min_units_expected"`
}

type withdrawRequest struct {
	UnitsToBurn        uint64 `json:"units_to_burn"`
	MinReserveExpected uint64 `json:"min_reserve_expected"`
	Depositor          string `json:"depositor"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type extractRequest struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

type unitsResponse struct {
	UnitsMinted uint64 `json:"units_minted"`
}

type reserveResponse struct {
	ReserveReleased uint64 `json:"reserve_released"`
}

type quoteResponse struct {
	Amount uint64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler builds the HTTP API for the pool service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.Handler())
	mux.Handle("GET /ws", s.hub)

	mux.HandleFunc("POST /pools", s.handleCreatePool)
	mux.HandleFunc("GET /pools", s.handleListPools)
	mux.HandleFunc("GET /pools/{id}", s.handlePoolInfo)
	mux.HandleFunc("POST /pools/{id}/initialize", s.handleInitialize)
	mux.HandleFunc("POST /pools/{id}/deposit", s.handleDeposit)
	mux.HandleFunc("POST /pools/{id}/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /pools/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /pools/{id}/extract", s.handleExtract)
	mux.HandleFunc("GET /pools/{id}/quote/deposit", s.handleQuoteDeposit)
	mux.HandleFunc("GET /pools/{id}/quote/withdraw", s.handleQuoteWithdraw)
	mux.HandleFunc("GET /pools/{id}/purchases", s.handlePoolPurchases)
	mux.HandleFunc("GET /pools/{id}/purchases/{index}", s.handlePurchase)
	mux.HandleFunc("GET /depositors/{id}/purchases", s.handleDepositorPurchases)

	return mux
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := s.CreatePool(r.Context(), req.Creator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Service) handleListPools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"pools": s.Pools()})
}

func (s *Service) handlePoolInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.PoolInfo(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	units, err := s.Initialize(r.Context(), r.PathValue("id"), req.ReserveAmount, req.Initiator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unitsResponse{UnitsMinted: units})
}

func (s *Service) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}

	units, err := s.Deposit(r.Context(), r.PathValue("id"), pool.DepositParams{
		ReserveAmount:       req.ReserveAmount,
		Depositor:           req.Depositor,
		USDReference:        req.USDReference,
		MaturationReference: req.MaturationReference,
		MinUnitsExpected:    req.MinUnitsExpected,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unitsResponse{UnitsMinted: units})
}

func (s *Service) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}

	released, err := s.Withdraw(r.Context(), r.PathValue("id"), req.UnitsToBurn, req.MinReserveExpected, req.Depositor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reserveResponse{ReserveReleased: released})
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.SetPaused(r.Context(), r.PathValue("id"), req.Paused); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.ExtractReserve(r.Context(), r.PathValue("id"), req.Amount, req.Recipient); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"extracted": req.Amount})
}

func (s *Service) handleQuoteDeposit(w http.ResponseWriter, r *http.Request) {
	amount, ok := queryUint(w, r, "amount")
	if !ok {
		return
	}

	units, err := s.QuoteDeposit(r.PathValue("id"), amount, r.URL.Query().Get("depositor"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Amount: units})
}

func (s *Service) handleQuoteWithdraw(w http.ResponseWriter, r *http.Request) {
	units, ok := queryUint(w, r, "units")
	if !ok {
		return
	}

	released, err := s.QuoteWithdraw(r.PathValue("id"), units)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Amount: released})
}

func (s *Service) handlePoolPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.PoolPurchases(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (s *Service) handlePurchase(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(r.PathValue("index"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid purchase index"})
		return
	}

	record, err := s.Purchase(r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Service) handleDepositorPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.DepositorPurchases(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func queryUint(w http.ResponseWriter, r *http.Request, key string) (uint64, bool) {
	v, err := strconv.ParseUint(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + key + " parameter"})
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), errorResponse{Error: err.Error()})
}

// statusFromError maps accounting errors onto HTTP status codes. Validation
// failures are the client's fault; ledger failures are upstream trouble.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, ErrPoolNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pool.ErrInvalidAmount),
		errors.Is(err, pool.ErrInsufficientInitialLiquidity),
		errors.Is(err, pool.ErrPoolNotInitialized),
		errors.Is(err, pool.ErrInsufficientReserve):
		return http.StatusBadRequest
	case errors.Is(err, pool.ErrPoolAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, pool.ErrSlippageExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pool.ErrPoolPaused):
		return http.StatusConflict
	default:
		var lerr *pool.LedgerError
		if errors.As(err, &lerr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}
