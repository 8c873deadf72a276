package engine

import (
	"context"
	"testing"
)

type fakeRef struct{ key, path string }

func (f fakeRef) Key() string      { return f.key }
func (f fakeRef) DiskPath() string { return f.path }

func TestRegistryCoversAllTaskTypes(t *testing.T) {
	r := NewRegistry()
	for _, task := range []string{"text", "image", "audio_tts", "audio_stt", "video"} {
		e, err := r.ForTask(task)
		if err != nil {
			t.Fatalf("ForTask(%s): %v", task, err)
		}
		if string(e.Task()) != task {
			t.Fatalf("engine for %s reports task %s", task, e.Task())
		}
	}
	if got := len(r.Tasks()); got != 5 {
		t.Fatalf("registry holds %d engines, want 5", got)
	}
}

func TestForTaskRejectsUnknownTask(t *testing.T) {
	r := NewRegistry()
	for _, task := range []string{"", "audio", "TEXT", "text "} {
		_, err := r.ForTask(task)
		if !IsUnsupportedTask(err) {
			t.Fatalf("ForTask(%q): expected unsupported task, got %v", task, err)
		}
	}
}

func TestExecuteEnvelope(t *testing.T) {
	r := NewRegistry()
	e, err := r.ForTask("text")
	if err != nil {
		t.Fatalf("ForTask: %v", err)
	}
	res, err := e.Execute(context.Background(), fakeRef{key: "acme/llm", path: "/cache/acme--llm"}, Request{Input: "hello"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.ModelID != "acme/llm" || res.TaskType != "text" || res.Output == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	r := NewRegistry()
	e, _ := r.ForTask("video")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Execute(ctx, fakeRef{key: "k"}, Request{}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestIsUnsupportedTaskOnOtherErrors(t *testing.T) {
	if IsUnsupportedTask(context.Canceled) {
		t.Fatalf("foreign error misclassified")
	}
	if !IsUnsupportedTask(ErrUnsupportedTask("x")) {
		t.Fatalf("constructor not recognized by predicate")
	}
}
