// Package allocations exposes the ledger operations over HTTP. The
// fronting auth layer authenticates requests and forwards the opaque
// caller identity in the X-Caller header; this package never authenticates
// anything itself.
package allocations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/openvest/vestd/core/claim"
	"github.com/openvest/vestd/core/logger"
	"github.com/openvest/vestd/core/registry"
	"github.com/openvest/vestd/core/store"
	"github.com/openvest/vestd/core/vesting"
)

// Handler routes ledger requests to the registry and claim engine.
type Handler struct {
	registry *registry.Registry
	engine   *claim.Engine
	log      logger.Logger
}

// New creates a Handler.
func New(reg *registry.Registry, eng *claim.Engine, log logger.Logger) *Handler {
	return &Handler{registry: reg, engine: eng, log: log}
}

// Mount registers all routes on the mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/allocations", h.register)
	mux.HandleFunc("GET /api/allocations", h.list)
	mux.HandleFunc("GET /api/allocations/{beneficiary}", h.get)
	mux.HandleFunc("GET /api/allocations/{beneficiary}/simulate", h.simulate)
	mux.HandleFunc("POST /api/claims", h.claim)
	mux.HandleFunc("POST /api/receiver/propose", h.proposeReceiver)
	mux.HandleFunc("POST /api/receiver/drop", h.dropReceiver)
	mux.HandleFunc("POST /api/receiver/claim", h.claimReceiver)
	mux.HandleFunc("GET /api/state", h.state)
}

type registerRequest struct {
	Beneficiary string             `json:"beneficiary"`
	Schedules   []vesting.Schedule `json:"schedules"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	alloc, err := h.registry.Register(r.Context(), caller(r), req.Beneficiary, req.Schedules)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alloc)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := store.ListQuery{StartAfter: r.URL.Query().Get("start_after")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		q.Limit = n
	}
	allocs, err := h.registry.List(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if allocs == nil {
		allocs = []vesting.Allocation{}
	}
	writeJSON(w, http.StatusOK, allocs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.registry.GetAllocation(r.Context(), r.PathValue("beneficiary"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var at uint64
	if v := r.URL.Query().Get("at"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid at timestamp", http.StatusBadRequest)
			return
		}
		at = n
	}
	sim, err := h.engine.SimulateWithdraw(r.Context(), r.PathValue("beneficiary"), at)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

type claimRequest struct {
	Beneficiary string `json:"beneficiary"`
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := h.engine.Claim(r.Context(), caller(r), req.Beneficiary)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type receiverRequest struct {
	NewReceiver     string `json:"new_receiver,omitempty"`
	PrevBeneficiary string `json:"prev_beneficiary,omitempty"`
}

func (h *Handler) proposeReceiver(w http.ResponseWriter, r *http.Request) {
	var req receiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.ProposeReceiver(r.Context(), caller(r), req.NewReceiver); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dropReceiver(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DropReceiver(r.Context(), caller(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) claimReceiver(w http.ResponseWriter, r *http.Request) {
	var req receiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.ClaimReceiver(r.Context(), caller(r), req.PrevBeneficiary); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st, err := h.registry.StateTotals(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func caller(r *http.Request) string {
	return r.Header.Get("X-Caller")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the ledger error taxonomy to HTTP statuses.
// NothingToClaim maps to 409 so pollers can tell it from a failure.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalid *vesting.InvalidScheduleError
	var failed *vesting.TransferFailedError
	switch {
	case errors.Is(err, vesting.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, vesting.ErrNoAllocation):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, vesting.ErrNothingToClaim):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, vesting.ErrGrantCeilingExceeded),
		errors.Is(err, vesting.ErrReceiverProposalExists),
		errors.Is(err, vesting.ErrNoReceiverProposal),
		errors.Is(err, vesting.ErrPendingClaim):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &failed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, vesting.ErrOverflow):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		if h.log != nil {
			h.log.Errorf("internal error: %v", err)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
