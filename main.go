package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/face-mask-service/config"
	"github.com/Tutortoise/face-mask-service/detections"
	"github.com/Tutortoise/face-mask-service/history"
	"github.com/Tutortoise/face-mask-service/logging"
	"github.com/Tutortoise/face-mask-service/models"
	"github.com/Tutortoise/face-mask-service/render"
)

const shutdownTimeout = 10 * time.Second

type AppState struct {
	Config    *config.Config
	Store     *detections.Store
	History   *history.Repository // nil when history is disabled
	Annotator *render.Annotator
	Log       *logrus.Logger
}

func newAppState(cfg *config.Config, store *detections.Store, repo *history.Repository, log *logrus.Logger) *AppState {
	return &AppState{
		Config:    cfg,
		Store:     store,
		History:   repo,
		Annotator: render.NewAnnotator(),
		Log:       log,
	}
}

func (s *AppState) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/detect", s.handleDetect).Methods("POST")
	r.HandleFunc("/crop_faces", s.handleCropFaces).Methods("POST")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/model/reload", s.handleReload).Methods("POST")
	r.HandleFunc("/ws/detect", s.handleDetectStream).Methods("GET")
	s.addMonitoringRoutes(r)
	if s.History != nil {
		s.addHistoryRoutes(r)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendErrorResponse(w, MsgNotFound, http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendErrorResponse(w, MsgMethodNotAllowed, http.StatusMethodNotAllowed)
	})
	return r
}

// Handler is the router wrapped in the middleware every request goes through,
// including unmatched ones.
func (s *AppState) Handler() http.Handler {
	return s.wrap(s.Router())
}

func (s *AppState) wrap(h http.Handler) http.Handler {
	h = bodyLimitMiddleware(s.Config.MaxUploadBytes)(h)
	h = corsMiddleware(h)
	return recoverMiddleware(s.Log)(h)
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
}

func (s *AppState) newTimings() *models.ProcessingTimings {
	return &models.ProcessingTimings{RequestID: fmt.Sprintf("%d", time.Now().UnixNano())}
}

func (s *AppState) requestLogger(t *models.ProcessingTimings, endpoint string) *logrus.Entry {
	return s.Log.WithFields(logrus.Fields{
		"request_id": t.RequestID,
		"endpoint":   endpoint,
	})
}

func (s *AppState) logTimings(log logrus.FieldLogger, t *models.ProcessingTimings) {
	if !s.Config.Debug {
		return
	}
	log.WithFields(logrus.Fields{
		"decode":      t.ImageDecode,
		"preprocess":  t.Preprocess,
		"inference":   t.Inference,
		"postprocess": t.Postprocess,
		"render":      t.Render,
		"encode":      t.Encode,
		"total":       t.Total,
	}).Debug("Processing times")
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Debug, cfg.LogFile)
	log.Info("Starting Face Mask Detection Server...")
	log.Debugf("CPU features: %s", detections.CPUFeatures())

	if err := detections.InitializeRuntime(cfg.OnnxRuntimeLib); err != nil {
		log.Errorf("Failed to initialize ONNX Runtime: %v", err)
	}
	defer detections.DestroyRuntime()

	loader := detections.NewOnnxLoader(detections.OnnxOptions{
		Sessions:      cfg.ModelSessions,
		ConfThreshold: cfg.ConfThreshold,
		IouThreshold:  cfg.IouThreshold,
		NamesFile:     cfg.ClassNamesFile,
		Logger:        log,
	})
	store := detections.NewStore(cfg.ModelPath, cfg.FallbackModelPath, loader, log)
	if _, err := store.Load(); err != nil {
		log.Errorf("No model loaded, detection endpoints will fail until a reload succeeds: %v", err)
	}
	defer store.Close()

	var repo *history.Repository
	if cfg.HistoryDB != "" {
		db, err := history.Open(cfg.HistoryDB)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer db.Close()
		repo = history.NewRepository(db)
		log.Infof("Recording detection history in %s", cfg.HistoryDB)
	}

	state := newAppState(cfg, store, repo, log)

	srv := &http.Server{
		Handler:      state.Handler(),
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
}
