package progress

import "sync"

// Recorder keeps every update in memory. Tests use it in place of a
// terminal renderer.
type Recorder struct {
	mu      sync.Mutex
	updates []Row
	started bool
	stopped bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func (r *Recorder) Update(row Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, row)
}

// Updates returns every update in arrival order.
func (r *Recorder) Updates() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Row(nil), r.updates...)
}

// Messages returns the messages of one slot in order, skipping the empty
// pending update.
func (r *Recorder) Messages(index int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, u := range r.updates {
		if u.Index == index && u.Status != StatusPending {
			out = append(out, u.Message)
		}
	}
	return out
}

// Stopped reports whether Stop was called.
func (r *Recorder) Stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

var _ Renderer = (*Recorder)(nil)
