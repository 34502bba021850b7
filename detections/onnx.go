package detections

import (
	"context"
	"fmt"
	"image"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Tutortoise/face-mask-service/models"
)

type OnnxOptions struct {
	Sessions      int
	ConfThreshold float32
	IouThreshold  float32
	// NamesFile overrides the class names embedded in the model metadata.
	NamesFile string
	Logger    logrus.FieldLogger
}

// OnnxModel runs an exported YOLOv8 detector through ONNX Runtime.
type OnnxModel struct {
	path          string
	names         ClassNames
	layout        tensorLayout
	confThreshold float32
	iouThreshold  float32
	pool          *SessionPool
	preprocessor  *Preprocessor
	log           logrus.FieldLogger
}

// InitializeRuntime loads the ONNX Runtime shared library. It must succeed
// before any OnnxModel can be loaded.
func InitializeRuntime(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime from %s: %w", libPath, err)
	}
	return nil
}

func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// NewOnnxLoader returns a Loader that opens models with opts.
func NewOnnxLoader(opts OnnxOptions) Loader {
	return func(path string) (Model, error) {
		model, err := LoadOnnxModel(path, opts)
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}

func LoadOnnxModel(path string, opts OnnxOptions) (*OnnxModel, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.ConfThreshold <= 0 {
		opts.ConfThreshold = DefaultConfThreshold
	}
	if opts.IouThreshold <= 0 {
		opts.IouThreshold = DefaultIouThreshold
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
		return nil, fmt.Errorf("stat model file: %w", err)
	}
	if !ort.IsInitialized() {
		return nil, fmt.Errorf("onnxruntime environment is not initialized")
	}

	log := opts.Logger.WithField("model", path)
	names := loadClassNames(path, opts.NamesFile, log)

	layout, err := inspectModel(path, len(names))
	if err != nil {
		return nil, err
	}
	if len(names) > 0 && len(names) != layout.NumClasses {
		log.Warnf("Model outputs %d classes but %d class names are known", layout.NumClasses, len(names))
	}

	sessions := opts.Sessions
	if sessions <= 0 {
		sessions = DefaultPoolSize
	}
	threads := max(1, runtime.NumCPU()/sessions)

	pool, err := NewSessionPool(sessions, func() (*ModelSession, error) {
		session, err := newModelSession(path, layout, threads)
		if err != nil {
			return nil, err
		}
		if err := session.warmUp(); err != nil {
			session.Destroy()
			return nil, fmt.Errorf("warm up session: %w", err)
		}
		return session, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model session pool: %w", err)
	}

	log.WithFields(logrus.Fields{
		"input":    fmt.Sprintf("%dx%d", layout.InputW, layout.InputH),
		"classes":  layout.NumClasses,
		"anchors":  layout.Anchors,
		"sessions": sessions,
	}).Info("ONNX model loaded")

	return &OnnxModel{
		path:          path,
		names:         names,
		layout:        layout,
		confThreshold: opts.ConfThreshold,
		iouThreshold:  opts.IouThreshold,
		pool:          pool,
		preprocessor:  NewPreprocessor(layout.InputW, layout.InputH),
		log:           log,
	}, nil
}

func loadClassNames(modelPath, namesFile string, log logrus.FieldLogger) ClassNames {
	if namesFile != "" {
		names, err := LoadNamesFile(namesFile)
		if err == nil {
			return names
		}
		log.Warnf("Could not load class names file: %v", err)
	}

	names, err := readMetadataNames(modelPath)
	if err != nil {
		log.Warnf("Model carries no usable class names, detections will use class_<id>: %v", err)
		return nil
	}
	return names
}

// inspectModel reads the tensor layout from the model file. Dynamic
// dimensions fall back to a 640x640 input and the anchor count it implies.
func inspectModel(path string, knownClasses int) (tensorLayout, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return tensorLayout{}, fmt.Errorf("read model inputs and outputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return tensorLayout{}, fmt.Errorf("model has %d inputs and %d outputs", len(inputs), len(outputs))
	}

	layout := tensorLayout{
		InputName:  inputs[0].Name,
		OutputName: outputs[0].Name,
		InputW:     DefaultInputSize,
		InputH:     DefaultInputSize,
	}

	if dims := inputs[0].Dimensions; len(dims) == 4 {
		if dims[2] > 0 {
			layout.InputH = int(dims[2])
		}
		if dims[3] > 0 {
			layout.InputW = int(dims[3])
		}
	}

	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return tensorLayout{}, fmt.Errorf("unsupported output shape %v", dims)
	}
	switch {
	case dims[1] > 4:
		layout.NumClasses = int(dims[1]) - 4
	case knownClasses > 0:
		layout.NumClasses = knownClasses
	default:
		return tensorLayout{}, fmt.Errorf("cannot determine class count from output shape %v", dims)
	}
	if dims[2] > 0 {
		layout.Anchors = int(dims[2])
	} else {
		layout.Anchors = anchorCount(layout.InputW, layout.InputH)
	}

	return layout, nil
}

// anchorCount is the number of predictions of a detector with strides 8, 16 and 32.
func anchorCount(w, h int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		total += (w / stride) * (h / stride)
	}
	return total
}

func (m *OnnxModel) Infer(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]RawResult, error) {
	if timings == nil {
		timings = &models.ProcessingTimings{}
	}

	session, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, &InferenceError{Message: "acquire model session", Cause: err}
	}
	defer m.pool.Release(session)

	prepStart := time.Now()
	lb := m.preprocessor.Letterbox(img)
	if err := m.preprocessor.Fill(lb.Image, session.Input.GetData()); err != nil {
		return nil, &InferenceError{Message: "prepare input buffer", Cause: err}
	}
	timings.Preprocess = time.Since(prepStart)

	inferStart := time.Now()
	if err := session.Session.Run(); err != nil {
		return nil, &InferenceError{Message: "model inference", Cause: err}
	}
	timings.Inference = time.Since(inferStart)

	postStart := time.Now()
	boxes, err := decodeOutput(session.Output.GetData(), m.layout, lb, m.confThreshold, m.iouThreshold)
	if err != nil {
		return nil, &InferenceError{Message: "process predictions", Cause: err}
	}
	timings.Postprocess = time.Since(postStart)

	return []RawResult{{Boxes: boxes}}, nil
}

func (m *OnnxModel) ClassName(id int) (string, bool) {
	return m.names.ClassName(id)
}

func (m *OnnxModel) Path() string {
	return m.path
}

func (m *OnnxModel) Metrics() PoolMetrics {
	return m.pool.GetMetrics()
}

// Close destroys idle sessions now; sessions still in use are destroyed
// when they are released.
func (m *OnnxModel) Close() error {
	m.pool.Destroy()
	return nil
}
