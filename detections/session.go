package detections

import (
	"fmt"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

type ModelSession struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Output != nil {
		m.Output.Destroy()
	}
}

// tensorLayout describes the fixed tensors of a YOLOv8 style detector:
// input [1, 3, H, W] and output [1, 4+classes, anchors].
type tensorLayout struct {
	InputName  string
	OutputName string
	InputW     int
	InputH     int
	NumClasses int
	Anchors    int
}

func (l tensorLayout) inputShape() ort.Shape {
	return ort.NewShape(1, 3, int64(l.InputH), int64(l.InputW))
}

func (l tensorLayout) outputShape() ort.Shape {
	return ort.NewShape(1, int64(4+l.NumClasses), int64(l.Anchors))
}

func newModelSession(modelPath string, layout tensorLayout, threads int) (*ModelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options.SetIntraOpNumThreads(threads)
	options.SetInterOpNumThreads(1)

	inputTensor, err := ort.NewEmptyTensor[float32](layout.inputShape())
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](layout.outputShape())
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{layout.InputName},
		[]string{layout.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ModelSession{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}

// warmUp runs one inference on a zeroed input so the first request does not
// pay for lazy graph initialization.
func (m *ModelSession) warmUp() error {
	data := m.Input.GetData()
	for i := range data {
		data[i] = 0
	}
	return m.Session.Run()
}
