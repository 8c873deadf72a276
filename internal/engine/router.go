package engine

// Registry holds the closed engine set and routes tasks to engines.
type Registry struct {
	engines map[TaskType]Engine
}

// NewRegistry builds the full engine set.
func NewRegistry() *Registry {
	r := &Registry{engines: make(map[TaskType]Engine)}
	for _, e := range []Engine{
		TextEngine(),
		ImageEngine(),
		TTSEngine(),
		STTEngine(),
		VideoEngine(),
	} {
		r.engines[e.Task()] = e
	}
	return r
}

// ForTask returns the engine serving the given task type, or an
// unsupported-task error for anything outside the closed set.
func (r *Registry) ForTask(task string) (Engine, error) {
	e, ok := r.engines[TaskType(task)]
	if !ok {
		return nil, ErrUnsupportedTask(task)
	}
	return e, nil
}

// Tasks lists the supported task types.
func (r *Registry) Tasks() []TaskType {
	out := make([]TaskType, 0, len(r.engines))
	for t := range r.engines {
		out = append(out, t)
	}
	return out
}
