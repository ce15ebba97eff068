package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"app-installer/internal/app"
	"app-installer/internal/types"
)

const maxRequestBytes = 64 << 10

type pairRequest struct {
	AppID            string `json:"appId"`
	PackageManagerID string `json:"packageManagerId"`
}

// resultResponse renders a never-verified placeholder with a null timestamp.
type resultResponse struct {
	ID               string                   `json:"id,omitempty"`
	AppID            string                   `json:"appId"`
	PackageManagerID types.ManagerID          `json:"packageManagerId"`
	PackageName      string                   `json:"packageName"`
	Status           types.VerificationStatus `json:"status"`
	Timestamp        *time.Time               `json:"timestamp"`
	ErrorMessage     string                   `json:"errorMessage,omitempty"`
	ManualReviewFlag bool                     `json:"manualReviewFlag"`
	LatestVersion    string                   `json:"latestVersion,omitempty"`
}

type handler struct {
	service app.Service
}

// NewHandler routes the API onto service. metrics may be nil.
func NewHandler(service app.Service, metrics http.Handler) http.Handler {
	h := handler{service: service}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /api/verify/trigger", h.trigger)
	mux.HandleFunc("POST /api/verify", h.verify)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/admin/flagged", h.flagged)
	mux.HandleFunc("POST /api/admin/resolve", h.resolve)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return withRequestLogging(mux)
}

func (h handler) trigger(writer http.ResponseWriter, request *http.Request) {
	summary, err := h.service.TriggerVerification(request.Context(), app.TriggerVerificationRequest{
		Token: bearerToken(request),
	})
	if err != nil {
		writeError(writer, request, err)
		return
	}
	writeJSON(writer, http.StatusOK, summary)
}

func (h handler) verify(writer http.ResponseWriter, request *http.Request) {
	input, err := decodePair(writer, request)
	if err != nil {
		writeError(writer, request, err)
		return
	}
	result, err := h.service.VerifyPackage(request.Context(), app.VerifyPackageRequest{
		AppID:   input.AppID,
		Manager: types.ManagerID(input.PackageManagerID),
	})
	if err != nil {
		writeError(writer, request, err)
		return
	}
	writeJSON(writer, http.StatusOK, toResponse(result))
}

func (h handler) status(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	result, err := h.service.Status(request.Context(), app.StatusRequest{
		AppID:   query.Get("appId"),
		Manager: types.ManagerID(query.Get("packageManagerId")),
	})
	if err != nil {
		writeError(writer, request, err)
		return
	}
	if result.Single {
		writeJSON(writer, http.StatusOK, toResponse(result.Results[0]))
		return
	}
	writeJSON(writer, http.StatusOK, toResponses(result.Results))
}

func (h handler) flagged(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	results, err := h.service.ListFlagged(request.Context(), types.FlaggedQuery{
		Manager: types.ManagerID(query.Get("packageManagerId")),
		SortBy:  query.Get("sortBy"),
		Order:   types.SortOrder(query.Get("order")),
	})
	if err != nil {
		writeError(writer, request, err)
		return
	}
	writeJSON(writer, http.StatusOK, toResponses(results))
}

func (h handler) resolve(writer http.ResponseWriter, request *http.Request) {
	input, err := decodePair(writer, request)
	if err != nil {
		writeError(writer, request, err)
		return
	}
	result, err := h.service.ResolveFlag(request.Context(), app.ResolveFlagRequest{
		AppID:   input.AppID,
		Manager: types.ManagerID(input.PackageManagerID),
	})
	if err != nil {
		writeError(writer, request, err)
		return
	}
	writeJSON(writer, http.StatusOK, toResponse(result))
}

func bearerToken(request *http.Request) string {
	header := strings.TrimSpace(request.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func decodePair(writer http.ResponseWriter, request *http.Request) (pairRequest, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxRequestBytes)
	defer func() {
		_ = request.Body.Close()
	}()
	decoder := json.NewDecoder(request.Body)
	var input pairRequest
	if err := decoder.Decode(&input); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return pairRequest{}, badRequest("request body too large")
		}
		return pairRequest{}, badRequest(fmt.Sprintf("decode request: %v", err))
	}
	var tail struct{}
	if err := decoder.Decode(&tail); err != io.EOF {
		return pairRequest{}, badRequest("request body must contain a single JSON object")
	}
	return input, nil
}

func toResponse(result types.VerificationResult) resultResponse {
	response := resultResponse{
		ID:               result.ID,
		AppID:            result.AppID,
		PackageManagerID: result.PackageManagerID,
		PackageName:      result.PackageName,
		Status:           result.Status,
		ErrorMessage:     result.ErrorMessage,
		ManualReviewFlag: result.ManualReviewFlag,
		LatestVersion:    result.LatestVersion,
	}
	if !result.Timestamp.IsZero() {
		timestamp := result.Timestamp.UTC()
		response.Timestamp = &timestamp
	}
	return response
}

func toResponses(results []types.VerificationResult) []resultResponse {
	out := make([]resultResponse, 0, len(results))
	for _, result := range results {
		out = append(out, toResponse(result))
	}
	return out
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("content-type", "application/json")
	writer.WriteHeader(status)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}
