package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/labelens/labelens/internal/ailink"
	"github.com/labelens/labelens/internal/ailink/encode"
	"github.com/labelens/labelens/internal/core/engine"
	apperrors "github.com/labelens/labelens/internal/errors"
	"github.com/labelens/labelens/internal/metrics"
	"github.com/labelens/labelens/internal/observability"
)

// Extractor runs the extraction pipeline. Satisfied by *ailink.Service.
type Extractor interface {
	Extract(ctx context.Context, req ailink.ExtractRequest) (*ailink.ExtractResult, *ailink.ExtractError)
}

// ExtractRequest is the request body for POST /v1/extract.
type ExtractRequest struct {
	// Image is the base64-encoded label photo. A data URI prefix
	// ("data:image/png;base64,...") is tolerated and stripped.
	Image string `json:"image"`

	// Prompt optionally selects a non-default prompt slug.
	Prompt string `json:"prompt,omitempty"`

	// Model optionally overrides the configured model.
	Model string `json:"model,omitempty"`
}

// ExtractResponse is the success body for POST /v1/extract.
type ExtractResponse struct {
	Kcal    int     `json:"kcal"`
	Protein float64 `json:"protein"`
}

// ExtractHandler serves POST /v1/extract: admit the client, run the
// pipeline, and map the outcome onto the HTTP contract.
type ExtractHandler struct {
	Service  Extractor
	Limiter  *engine.ClientLimiter
	Upstream *engine.UpstreamLimiter

	// UpstreamEndpoint keys the upstream limiter state (provider id).
	UpstreamEndpoint string

	// ClientHeader names the header carrying the client id; empty disables
	// header-based identification.
	ClientHeader string

	// TrustForwardedFor uses X-Forwarded-For for the fallback client id.
	TrustForwardedFor bool

	// MaxBodyBytes caps the request body size. Zero means no cap.
	MaxBodyBytes int64
}

func (h *ExtractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	clientID := h.clientID(r)
	if h.Limiter != nil {
		decision := h.Limiter.Admit(clientID)
		metrics.RecordRateLimitDecision(decision.Allowed)
		writeRateLimitHeaders(w, decision)
		if !decision.Allowed {
			env := apperrors.NewRateLimitedError("Rate limit exceeded, try again later")
			respondWithError(w, r, env)
			return
		}
	}

	var body ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Request body must be JSON"))
		return
	}

	image, err := decodeImage(body.Image)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Image must be valid base64"))
		return
	}

	if h.Upstream != nil {
		allowed, wait, limErr := h.Upstream.Allow(r.Context(), h.UpstreamEndpoint)
		if limErr != nil && observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Upstream limiter check failed",
				zap.Error(limErr))
		}
		if !allowed {
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			}
			env := gferrors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Upstream request budget exhausted")
			apperrors.RespondWithEnvelope(w, r, env)
			return
		}
	}

	start := time.Now()
	result, extractErr := h.Service.Extract(r.Context(), ailink.ExtractRequest{
		Image:      image,
		PromptSlug: body.Prompt,
		Model:      body.Model,
	})
	h.recordUpstream(r.Context(), result, extractErr)

	if extractErr != nil {
		metrics.RecordExtraction(string(extractErr.Kind), time.Since(start))
		h.respondFailure(w, r, extractErr)
		return
	}

	metrics.RecordExtraction("success", time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ExtractResponse{
		Kcal:    result.Facts.Kcal,
		Protein: result.Facts.Protein,
	})
}

// respondFailure maps pipeline failures onto the HTTP contract: missing
// input is the caller's fault, upstream errors pass the provider's status
// through, and parse/validation failures return the degraded shape.
func (h *ExtractHandler) respondFailure(w http.ResponseWriter, r *http.Request, extractErr *ailink.ExtractError) {
	switch extractErr.Kind {
	case ailink.KindMissingInput:
		respondWithError(w, r, apperrors.NewInvalidInputError(extractErr.Message))

	case ailink.KindUpstreamError:
		env := apperrors.NewExternalServiceError("Upstream provider request failed")
		if body := strings.TrimSpace(extractErr.Body); body != "" {
			env, _ = env.WithContext(map[string]interface{}{
				"upstream_body": truncate(body, 2048),
			})
		}
		status := extractErr.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		apperrors.RespondWithEnvelopeStatus(w, r, env, status)

	case ailink.KindMalformedReply:
		respondWithError(w, r, apperrors.NewDataProcessingError("Upstream reply had no usable content"))

	case ailink.KindParseFailure, ailink.KindValidationError:
		env := gferrors.NewErrorEnvelope(failureCode(extractErr.Kind), extractErr.Message)
		apperrors.RespondWithDegraded(w, r, env)

	default:
		respondWithError(w, r, apperrors.NewInternalError(extractErr.Message))
	}
}

func failureCode(kind ailink.ErrorKind) string {
	if kind == ailink.KindParseFailure {
		return "PARSE_FAILURE"
	}
	return "REPLY_VALIDATION_FAILURE"
}

// recordUpstream feeds the outcome back into the upstream limiter and metrics.
func (h *ExtractHandler) recordUpstream(ctx context.Context, result *ailink.ExtractResult, extractErr *ailink.ExtractError) {
	if h.Upstream == nil {
		return
	}

	// Missing input never reaches the network.
	if extractErr != nil && extractErr.Kind == ailink.KindMissingInput {
		return
	}

	if err := h.Upstream.Record(ctx, h.UpstreamEndpoint); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to record upstream request",
			zap.Error(err))
	}

	status := http.StatusOK
	if extractErr != nil && extractErr.StatusCode > 0 {
		status = extractErr.StatusCode
	}
	metrics.RecordUpstreamRequest(h.UpstreamEndpoint, status)

	if status == http.StatusTooManyRequests {
		if err := h.Upstream.Record429(ctx, h.UpstreamEndpoint, time.Minute); err != nil && observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to record upstream backoff",
				zap.Error(err))
		}
	}
}

// clientID resolves the rate limit key: the configured header when present,
// otherwise the remote address.
func (h *ExtractHandler) clientID(r *http.Request) string {
	if h.ClientHeader != "" {
		if id := strings.TrimSpace(r.Header.Get(h.ClientHeader)); id != "" {
			return id
		}
	}

	if h.TrustForwardedFor {
		if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
			// First hop is the originating client.
			if idx := strings.IndexByte(fwd, ','); idx >= 0 {
				fwd = fwd[:idx]
			}
			return strings.TrimSpace(fwd)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimitHeaders(w http.ResponseWriter, decision engine.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
	if !decision.Allowed && decision.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())+1))
	}
}

// decodeImage accepts plain base64 or a data URI and returns raw bytes.
func decodeImage(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "data:") {
		if idx := strings.IndexByte(trimmed, ','); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
	}

	return encode.DecodeBase64String(trimmed)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
