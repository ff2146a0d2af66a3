// Package inference evaluates board snapshots with an ONNX value network so
// the planner can use a learned horizon score.
package inference

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/snekplan/game"
	"github.com/brensch/snekplan/planner"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ValueNet wraps one ONNX session with a single input "input" of shape
// [1, Channels, Height, Width] and a single output "value" of shape [1, 1]
// in [-1, 1]. Runs are serialised.
type ValueNet struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	lose    float64
	win     float64
	logger  *slog.Logger
	errors  atomic.Int64
}

// NewValueNet loads modelPath. lose and win are the planner's sentinels the
// network's output is rescaled between.
func NewValueNet(modelPath string, lose, win float64, logger *slog.Logger) (*ValueNet, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}
	if !(lose < win) {
		return nil, errors.New("lose value must be below win value")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if runtime.GOOS == "linux" {
		setSharedLibraryPath()
	}
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	// Searches already run one per request goroutine.
	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("inter-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{"input"}, []string{"value"}, options)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Info("value network loaded", "model", modelPath)
	return &ValueNet{session: session, lose: lose, win: win, logger: logger}, nil
}

// setSharedLibraryPath honours ORT_SHARED_LIBRARY_PATH and otherwise looks
// for the runtime library in the working directory.
func setSharedLibraryPath() {
	if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
		ort.SetSharedLibraryPath(p)
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	for _, name := range []string{"libonnxruntime.so", "libonnxruntime.so.1"} {
		abs := filepath.Join(cwd, name)
		if _, err := os.Stat(abs); err == nil {
			ort.SetSharedLibraryPath(abs)
			return
		}
	}
	if strings.Contains(os.Getenv("LD_LIBRARY_PATH"), "onnxruntime") {
		ort.SetSharedLibraryPath("libonnxruntime.so")
	}
}

// Evaluate returns the raw network value for s.
func (v *ValueNet) Evaluate(s *game.Snapshot) (float32, error) {
	bufPtr := getBuffer()
	defer putBuffer(bufPtr)
	input := Encode(s, *bufPtr)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, Channels, Height, Width), input)
	if err != nil {
		return 0, fmt.Errorf("input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("value tensor: %w", err)
	}
	defer valueTensor.Destroy()

	v.mu.Lock()
	err = v.session.Run([]ort.Value{inputTensor}, []ort.Value{valueTensor})
	v.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("run session: %w", err)
	}
	return valueTensor.GetData()[0], nil
}

// Score implements planner.Heuristic. Failures score as the constant horizon
// value; only the first failure is logged.
func (v *ValueNet) Score(s *game.Snapshot) float64 {
	raw, err := v.Evaluate(s)
	if err != nil {
		if v.errors.Add(1) == 1 {
			v.logger.Error("value network failed, using constant horizon", "err", err)
		}
		return planner.HorizonScore
	}
	return planner.Rescale(float64(raw), v.lose, v.win)
}

// Failures counts evaluations that fell back to the constant score.
func (v *ValueNet) Failures() int64 {
	return v.errors.Load()
}

func (v *ValueNet) Close() error {
	return v.session.Destroy()
}
