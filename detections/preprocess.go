package detections

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sys/cpu"
)

var (
	useAVX512 = cpu.X86.HasAVX512
	useAVX2   = cpu.X86.HasAVX2
	useSSE41  = cpu.X86.HasSSE41
)

// CPUFeatures describes the SIMD extensions available to the ONNX Runtime CPU provider.
func CPUFeatures() string {
	return fmt.Sprintf("arch=%s avx512=%t avx2=%t sse41=%t", runtime.GOARCH, useAVX512, useAVX2, useSSE41)
}

// Letterbox is an image resized into the model input with its aspect ratio
// kept and the remainder padded with gray.
type Letterbox struct {
	Image *image.NRGBA
	Scale float32
	PadX  int
	PadY  int
	SrcW  int
	SrcH  int
}

// ToSource maps a point from letterbox space back into source pixels,
// clipped to the source image.
func (l Letterbox) ToSource(x, y float32) (float32, float32) {
	sx := (x - float32(l.PadX)) / l.Scale
	sy := (y - float32(l.PadY)) / l.Scale
	return clampF32(sx, 0, float32(l.SrcW)), clampF32(sy, 0, float32(l.SrcH))
}

// Preprocessor converts images into normalized NCHW float32 model input.
type Preprocessor struct {
	width, height int
	numWorkers    int
}

func NewPreprocessor(width, height int) *Preprocessor {
	return &Preprocessor{
		width:      width,
		height:     height,
		numWorkers: runtime.GOMAXPROCS(0),
	}
}

func (p *Preprocessor) Letterbox(img image.Image) Letterbox {
	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()
	scale := math.Min(float64(p.width)/float64(srcW), float64(p.height)/float64(srcH))
	newW := max(1, int(math.Round(float64(srcW)*scale)))
	newH := max(1, int(math.Round(float64(srcH)*scale)))
	padX := (p.width - newW) / 2
	padY := (p.height - newH) / 2

	canvas := imaging.New(p.width, p.height, color.NRGBA{R: LetterboxFill, G: LetterboxFill, B: LetterboxFill, A: 255})
	resized := imaging.Resize(img, newW, newH, imaging.Linear)
	canvas = imaging.Paste(canvas, resized, image.Pt(padX, padY))

	return Letterbox{
		Image: canvas,
		Scale: float32(scale),
		PadX:  padX,
		PadY:  padY,
		SrcW:  srcW,
		SrcH:  srcH,
	}
}

// Fill writes img (which must be width x height) into dst as planar RGB in [0, 1].
func (p *Preprocessor) Fill(img *image.NRGBA, dst []float32) error {
	if img.Bounds().Dx() != p.width || img.Bounds().Dy() != p.height {
		return fmt.Errorf("input is %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), p.width, p.height)
	}
	if len(dst) < 3*p.width*p.height {
		return fmt.Errorf("tensor holds %d values, want %d", len(dst), 3*p.width*p.height)
	}
	p.processParallel(img, dst)
	return nil
}

func (p *Preprocessor) processParallel(img *image.NRGBA, buffer []float32) {
	channelSize := p.width * p.height
	workers := max(1, min(p.numWorkers, p.height))
	rowsPerWorker := p.height / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == workers-1 {
			endRow = p.height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				src := img.Pix[y*img.Stride : y*img.Stride+p.width*4]
				offset := y * p.width
				for x := 0; x < p.width; x++ {
					i := offset + x
					buffer[i] = float32(src[x*4]) / 255.0
					buffer[channelSize+i] = float32(src[x*4+1]) / 255.0
					buffer[channelSize*2+i] = float32(src[x*4+2]) / 255.0
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
