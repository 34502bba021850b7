package main

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/face-mask-service/detections"
	"github.com/Tutortoise/face-mask-service/imageio"
	"github.com/Tutortoise/face-mask-service/models"
	"github.com/Tutortoise/face-mask-service/render"
)

type DetectResponse struct {
	Success         bool               `json:"success"`
	Detections      []models.Detection `json:"detections"`
	Stats           models.Stats       `json:"stats"`
	ResultImage     string             `json:"result_image"`
	TotalDetections int                `json:"total_detections"`
}

type CropFacesResponse struct {
	Success    bool          `json:"success"`
	Faces      []models.Face `json:"faces"`
	TotalFaces int           `json:"total_faces"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelPath   string `json:"model_path"`
}

type ReloadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ModelLoaded bool   `json:"model_loaded"`
}

type MetricsResponse struct {
	ModelLoaded bool                    `json:"model_loaded"`
	ModelPath   string                  `json:"model_path,omitempty"`
	Pool        *detections.PoolMetrics `json:"pool,omitempty"`
}

func (s *AppState) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *AppState) handleDetect(w http.ResponseWriter, r *http.Request) {
	timings := s.newTimings()
	log := s.requestLogger(timings, "/detect")

	fail := func(err error) {
		status, message := s.errorStatus(err, MsgDetectionFailed)
		logRequestError(log, status, err)
		writeJSON(w, status, DetectErrorResponse{Error: message, Detections: []models.Detection{}})
	}

	model, release, err := s.Store.Acquire()
	if err != nil {
		fail(err)
		return
	}
	defer release()

	in, err := readInput(r)
	if err != nil {
		fail(err)
		return
	}

	resp, err := s.detect(r.Context(), model, in, timings, log)
	if err != nil {
		fail(err)
		return
	}
	s.record(r.Context(), log, "/detect", resp.Stats, resp.TotalDetections, timings.Total)
	writeJSON(w, http.StatusOK, resp)
}

func (s *AppState) handleCropFaces(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	timings := s.newTimings()
	log := s.requestLogger(timings, "/crop_faces")

	fail := func(err error) {
		status, message := s.errorStatus(err, MsgFaceCroppingFailed)
		logRequestError(log, status, err)
		sendErrorResponse(w, message, status)
	}

	model, release, err := s.Store.Acquire()
	if err != nil {
		fail(err)
		return
	}
	defer release()

	in, err := readInput(r)
	if err != nil {
		fail(err)
		return
	}

	img, dets, err := s.analyze(r.Context(), model, in, timings, log)
	if err != nil {
		fail(err)
		return
	}

	encodeStart := time.Now()
	faces, err := render.CropFaces(img, dets, models.DefaultCropPaddingPx)
	timings.Encode = time.Since(encodeStart)
	if err != nil {
		fail(err)
		return
	}

	timings.Total = time.Since(start)
	s.logTimings(log, timings)
	s.record(r.Context(), log, "/crop_faces", models.CountStats(dets), len(dets), timings.Total)

	writeJSON(w, http.StatusOK, CropFacesResponse{
		Success:    true,
		Faces:      faces,
		TotalFaces: len(faces),
	})
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: s.Store.Loaded(),
		ModelPath:   s.Store.ModelPath(),
	})
}

func (s *AppState) handleReload(w http.ResponseWriter, _ *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.Log.Errorf("Model reload panicked: %v", rec)
			writeJSON(w, http.StatusInternalServerError, FailureResponse{
				Success: false,
				Error:   fmt.Sprint(rec),
			})
		}
	}()

	model, err := s.Store.Load()
	message := MsgModelReloaded
	if err != nil {
		s.Log.Warnf("Model reload left no model loaded: %v", err)
		message = MsgNoModelLoaded
	}

	writeJSON(w, http.StatusOK, ReloadResponse{
		Success:     true,
		Message:     message,
		ModelLoaded: model != nil,
	})
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	model := s.Store.Current()
	if model == nil {
		writeJSON(w, http.StatusOK, MetricsResponse{ModelLoaded: false})
		return
	}

	metrics := model.Metrics()
	writeJSON(w, http.StatusOK, MetricsResponse{
		ModelLoaded: true,
		ModelPath:   model.Path(),
		Pool:        &metrics,
	})
}

// analyze decodes in and runs model over it.
func (s *AppState) analyze(ctx context.Context, model detections.Model, in imageio.Input, timings *models.ProcessingTimings, log logrus.FieldLogger) (*image.NRGBA, []models.Detection, error) {
	decodeStart := time.Now()
	img, err := imageio.Decode(in, s.Config.MaxImagePixels)
	timings.ImageDecode = time.Since(decodeStart)
	if err != nil {
		return nil, nil, err
	}

	results, err := model.Infer(ctx, img, timings)
	if err != nil {
		return nil, nil, err
	}

	b := img.Bounds()
	return img, detections.Normalize(results, b.Dx(), b.Dy(), model, log), nil
}

// detect runs the full /detect pipeline, shared with the websocket stream.
func (s *AppState) detect(ctx context.Context, model detections.Model, in imageio.Input, timings *models.ProcessingTimings, log logrus.FieldLogger) (*DetectResponse, error) {
	start := time.Now()

	img, dets, err := s.analyze(ctx, model, in, timings, log)
	if err != nil {
		return nil, err
	}

	renderStart := time.Now()
	annotated := s.Annotator.Annotate(img, dets)
	timings.Render = time.Since(renderStart)

	encodeStart := time.Now()
	resultImage, err := imageio.DataURL(annotated)
	timings.Encode = time.Since(encodeStart)
	if err != nil {
		return nil, err
	}

	timings.Total = time.Since(start)
	s.logTimings(log, timings)

	return &DetectResponse{
		Success:         true,
		Detections:      dets,
		Stats:           models.CountStats(dets),
		ResultImage:     resultImage,
		TotalDetections: len(dets),
	}, nil
}
