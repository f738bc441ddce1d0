package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/edgevision/inference-service/detections"
	"github.com/edgevision/inference-service/models"
)

type AppState struct {
	Session *detections.Session
	Pool    *detections.BackendPool
	Logger  *zap.SugaredLogger
}

type DetectRequest struct {
	Image     *string  `json:"image"`
	FrameID   string   `json:"frame_id"`
	CaptureTS *float64 `json:"capture_ts"`
}

type DetectResponse struct {
	FrameID        string             `json:"frame_id"`
	CaptureTS      float64            `json:"capture_ts"`
	RecvTS         float64            `json:"recv_ts"`
	InferenceTS    float64            `json:"inference_ts"`
	Detections     []models.Detection `json:"detections"`
	DetectionCount int                `json:"detection_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newRouter(state *AppState) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", state.handleHealth).Methods("GET")
	r.HandleFunc("/detect", state.handleDetect).Methods("POST")
	r.HandleFunc("/stats", state.handleStats).Methods("GET")
	r.HandleFunc("/config", state.handleGetConfig).Methods("GET")
	r.HandleFunc("/config", state.handleUpdateConfig).Methods("POST")
	return r
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"timestamp":    float64(time.Now().UnixNano()) / 1e9,
		"model_loaded": s.Session.ModelLoaded(),
	})
}

func (s *AppState) handleDetect(w http.ResponseWriter, r *http.Request) {
	recvTS := nowMs()

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	if req.Image == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No image provided"})
		return
	}

	img, err := decodeImagePayload(*req.Image)
	if err != nil {
		s.Logger.Errorw("detect endpoint error", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	dets := s.Session.Detect(r.Context(), img)

	frameID := req.FrameID
	if frameID == "" {
		frameID = uuid.NewString()
	}
	captureTS := nowMs()
	if req.CaptureTS != nil {
		captureTS = *req.CaptureTS
	}

	writeJSON(w, http.StatusOK, DetectResponse{
		FrameID:        frameID,
		CaptureTS:      captureTS,
		RecvTS:         recvTS,
		InferenceTS:    nowMs(),
		Detections:     dets,
		DetectionCount: len(dets),
	})
}

func (s *AppState) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.Session.Stats()

	response := map[string]interface{}{
		"inference_count":           stats.InferenceCount,
		"average_inference_time_ms": stats.AverageInferenceTimeMs,
		"model_loaded":              stats.ModelLoaded,
		"model_path":                stats.ModelPath,
		"input_shape":               stats.InputShape,
		"confidence_threshold":      stats.ConfidenceThreshold,
	}
	if s.Pool != nil {
		response["pool"] = s.Pool.GetMetrics()
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *AppState) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.Config())
}

func (s *AppState) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfidenceThreshold *float64 `json:"confidence_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if req.ConfidenceThreshold != nil {
		if err := s.Session.SetConfidenceThreshold(*req.ConfidenceThreshold); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration updated"})
}

// decodeImagePayload decodes a base64 image, tolerating a data URL prefix.
func decodeImagePayload(payload string) (image.Image, error) {
	if strings.HasPrefix(payload, "data:image") {
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}

func nowMs() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
