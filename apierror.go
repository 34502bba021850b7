package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/face-mask-service/detections"
	"github.com/Tutortoise/face-mask-service/imageio"
	"github.com/Tutortoise/face-mask-service/models"
)

var (
	ErrMissingInput   = errors.New("no image provided")
	ErrNoFileSelected = errors.New("no file selected")
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// DetectErrorResponse is the error body of /detect, which always carries an
// empty detection list.
type DetectErrorResponse struct {
	Error      string             `json:"error"`
	Detections []models.Detection `json:"detections"`
}

// FailureResponse is used where a success flag is part of the contract
// (model reload, websocket frames).
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// errorStatus maps err to a status code and client message. failure is the
// message used for inference errors; the cause is appended in debug mode.
func (s *AppState) errorStatus(err error, failure string) (int, string) {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, MsgFileTooLarge
	case errors.Is(err, ErrNoFileSelected):
		return http.StatusBadRequest, MsgNoFileSelected
	case errors.Is(err, ErrMissingInput):
		return http.StatusBadRequest, MsgNoImage
	case imageio.IsInvalidImage(err):
		return http.StatusBadRequest, MsgInvalidImage
	case errors.Is(err, detections.ErrModelUnavailable):
		return http.StatusInternalServerError, MsgModelNotLoaded
	}

	if s.Config.Debug {
		return http.StatusInternalServerError, failure + ": " + err.Error()
	}
	return http.StatusInternalServerError, failure
}

func logRequestError(log logrus.FieldLogger, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Errorf("Request failed: %v", err)
		return
	}
	log.Debugf("Rejected request: %v", err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
