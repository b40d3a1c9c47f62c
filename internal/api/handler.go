package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eugenenazirov/apheresis/internal/collection"
	"github.com/eugenenazirov/apheresis/internal/cryo"
	"github.com/eugenenazirov/apheresis/internal/metrics"
	"github.com/eugenenazirov/apheresis/internal/storage"
	"github.com/eugenenazirov/apheresis/internal/validation"
	"github.com/eugenenazirov/apheresis/internal/volemia"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Defaults are applied to optional request fields.
type Defaults struct {
	Efficiency              float64
	MaxAllowedConcentration float64
}

// defaultMaxAllowedConcentration is the usual leukocyte limit in cells/mm³.
const defaultMaxAllowedConcentration = 250000

// Handler wires the calculators and the container catalogue into HTTP handlers.
type Handler struct {
	storage  storage.Storage
	metrics  *metrics.Recorder
	logger   *zap.Logger
	defaults Defaults

	clock func() time.Time

	mu                      sync.RWMutex
	containerTypesUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithDefaults overrides the values used for omitted request fields.
func WithDefaults(d Defaults) HandlerOption {
	return func(h *Handler) {
		h.defaults = d
	}
}

// WithMetrics records calculation outcomes on r.
func WithMetrics(r *metrics.Recorder) HandlerOption {
	return func(h *Handler) {
		h.metrics = r
	}
}

// WithLogger sets the logger used for rejected and failed calculations.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:  store,
		logger:   zap.NewNop(),
		defaults: Defaults{
			Efficiency:              collection.DefaultEfficiency,
			MaxAllowedConcentration: defaultMaxAllowedConcentration,
		},
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.containerTypesUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetContainerTypes(w http.ResponseWriter, r *http.Request) {
	_ = r
	types, err := h.storage.GetContainerTypes()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := containerTypesResponse{
		ContainerTypes: types,
		UpdatedAt:      h.currentContainerTypesUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutContainerTypes(w http.ResponseWriter, r *http.Request) {
	var req containerTypesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.ContainerTypes) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid container types", "containerTypes must contain at least one entry")
		return
	}

	if err := h.storage.SetContainerTypes(req.ContainerTypes); err != nil {
		if errors.Is(err, storage.ErrInvalidContainerTypes) {
			writeErrorWithProblems(w, http.StatusBadRequest, "Invalid container types", err)
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markContainerTypesUpdated()
	h.logger.Info("container types updated", zap.Int("count", len(req.ContainerTypes)),
		zap.String("request_id", requestIDFromContext(r.Context())))

	types, err := h.storage.GetContainerTypes()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := containerTypesResponse{
		ContainerTypes: types,
		UpdatedAt:      h.currentContainerTypesUpdatedAt(),
		Message:        "Container types updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBloodVolume(w http.ResponseWriter, r *http.Request) {
	var req bloodVolumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	liters, err := estimateBloodVolume(req)
	h.observe(r.Context(), metrics.KindBloodVolume, start, err)
	if err != nil {
		writeCalculationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bloodVolumeResponse{BloodVolumeL: math.Round(liters*100) / 100})
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	marker, err := collection.ParseMarker(chi.URLParam(r, "marker"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown marker", err.Error())
		return
	}

	var req collectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	efficiency := h.defaults.Efficiency
	if req.Efficiency != nil {
		efficiency = *req.Efficiency
	}

	start := time.Now()
	result, err := collection.Compute(req.Donor.toDonor(), collection.Request{
		Marker:                    marker,
		RecipientWeightKg:         req.RecipientWeightKg,
		TargetDosePerKg:           req.TargetDosePerKg,
		PreapheresisConcentration: req.PreapheresisConcentration,
		Efficiency:                efficiency,
	})
	h.observe(r.Context(), metrics.KindCollection, start, err)
	if err != nil {
		writeCalculationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDoseVials(w http.ResponseWriter, r *http.Request) {
	var req doseVialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	result, err := cryo.DoseVialsFor(req.toRequest(h.defaults), req.DosePerKg)
	h.observe(r.Context(), metrics.KindDoseVials, start, err)
	if err != nil {
		writeCalculationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	planReq := req.toRequest(h.defaults)
	planReq.ContainerTypes = req.ContainerTypes
	if len(planReq.ContainerTypes) == 0 {
		types, err := h.storage.GetContainerTypes()
		if err != nil {
			writeInternalError(w, err)
			return
		}
		planReq.ContainerTypes = types
	}
	if req.DoseSpecific != nil {
		planReq.DoseSpecific = &cryo.DoseSpecific{
			DosePerKg:    req.DoseSpecific.DosePerKg,
			MaxCryovials: req.DoseSpecific.MaxCryovials,
		}
	}

	start := time.Now()
	result, err := cryo.Plan(planReq)
	h.observe(r.Context(), metrics.KindPlan, start, err)
	if err != nil {
		writeCalculationError(w, err)
		return
	}

	if result.VolumeRemainingMl > 0 {
		h.logger.Debug("plan left volume unallocated",
			zap.Float64("remaining_ml", result.VolumeRemainingMl),
			zap.String("request_id", requestIDFromContext(r.Context())))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) observe(ctx context.Context, kind string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, validation.ErrInvalidInput):
		outcome = metrics.OutcomeInvalid
		h.logger.Debug("calculation rejected",
			zap.String("kind", kind),
			zap.Strings("problems", validation.Messages(err)),
			zap.String("request_id", requestIDFromContext(ctx)))
	default:
		outcome = metrics.OutcomeError
		h.logger.Error("calculation failed", zap.String("kind", kind), zap.Error(err),
			zap.String("request_id", requestIDFromContext(ctx)))
	}
	h.metrics.ObserveCalculation(kind, outcome, time.Since(start))
}

func (h *Handler) currentContainerTypesUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.containerTypesUpdatedAt
}

func (h *Handler) markContainerTypesUpdated() {
	h.mu.Lock()
	h.containerTypesUpdatedAt = h.clock()
	h.mu.Unlock()
}

func estimateBloodVolume(req bloodVolumeRequest) (float64, error) {
	donor := req.toDonor()

	var c validation.Collector
	c.Check(validation.InRange(donor.WeightKg, volemia.MinWeightKg, volemia.MaxWeightKg),
		"weight must be between %g and %g kg", volemia.MinWeightKg, volemia.MaxWeightKg)
	c.Check(validation.InRange(donor.HeightCm, volemia.MinHeightCm, volemia.MaxHeightCm),
		"height must be between %g and %g cm", volemia.MinHeightCm, volemia.MaxHeightCm)
	c.Check(donor.Sex.Valid(), "sex must be M or F")
	if err := c.Err(); err != nil {
		return 0, err
	}

	return volemia.Estimate(donor.WeightKg, donor.HeightCm, donor.Sex), nil
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeErrorWithProblems(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, errorResponse{
		Error:    message,
		Details:  err.Error(),
		Problems: validation.Messages(err),
	})
}

func writeCalculationError(w http.ResponseWriter, err error) {
	if errors.Is(err, validation.ErrInvalidInput) {
		writeErrorWithProblems(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	writeInternalError(w, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
