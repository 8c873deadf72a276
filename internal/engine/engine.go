// Package engine maps task types onto the closed set of inference engines
// (text, image, TTS, STT, video) behind one capability interface. The
// numeric computation itself lives outside this daemon; each engine here is
// the seam a real runtime plugs into, and produces a deterministic result
// envelope in the meantime.
package engine

import (
	"context"
	"fmt"
)

// TaskType identifies which model family a request targets.
type TaskType string

const (
	TaskText     TaskType = "text"
	TaskImage    TaskType = "image"
	TaskAudioTTS TaskType = "audio_tts"
	TaskAudioSTT TaskType = "audio_stt"
	TaskVideo    TaskType = "video"
)

// Request is the engine-facing slice of an execute call.
type Request struct {
	Input  string
	Params map[string]any
}

// Result is the engine output envelope.
type Result struct {
	ModelID  string `json:"model_id"`
	TaskType string `json:"task_type"`
	Output   string `json:"output"`
}

// ModelRef is the residency lease surface an engine needs: the model key and
// the on-disk weights backing the resident instance. Satisfied by
// *residency.Lease.
type ModelRef interface {
	Key() string
	DiskPath() string
}

// Engine executes requests against a model held resident by a lease.
type Engine interface {
	Task() TaskType
	Execute(ctx context.Context, model ModelRef, req Request) (Result, error)
}

// unsupportedTaskError signals a task type outside the closed engine set.
type unsupportedTaskError struct{ task string }

func (e unsupportedTaskError) Error() string { return "unsupported task type: " + e.task }

// ErrUnsupportedTask constructs an unsupportedTaskError.
func ErrUnsupportedTask(task string) error { return unsupportedTaskError{task: task} }

// IsUnsupportedTask reports whether err indicates an unknown task type.
func IsUnsupportedTask(err error) bool {
	_, ok := err.(unsupportedTaskError)
	return ok
}

type stubEngine struct {
	task TaskType
	verb string
}

func (e stubEngine) Task() TaskType { return e.task }

func (e stubEngine) Execute(ctx context.Context, model ModelRef, req Request) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	return Result{
		ModelID:  model.Key(),
		TaskType: string(e.task),
		Output:   fmt.Sprintf("%s %d input bytes with %s", e.verb, len(req.Input), model.Key()),
	}, nil
}

// TextEngine serves text generation models.
func TextEngine() Engine { return stubEngine{task: TaskText, verb: "generated from"} }

// ImageEngine serves image diffusion models.
func ImageEngine() Engine { return stubEngine{task: TaskImage, verb: "rendered from"} }

// TTSEngine serves speech synthesis models.
func TTSEngine() Engine { return stubEngine{task: TaskAudioTTS, verb: "synthesized from"} }

// STTEngine serves speech recognition models.
func STTEngine() Engine { return stubEngine{task: TaskAudioSTT, verb: "transcribed"} }

// VideoEngine serves video generation models.
func VideoEngine() Engine { return stubEngine{task: TaskVideo, verb: "animated from"} }
