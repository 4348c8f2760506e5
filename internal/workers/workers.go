package workers

// Workers aggregates background workers so the composition root can start
// them uniformly.
type Workers struct {
	workers []Worker
}

func NewWorkers(ws ...Worker) *Workers {
	return &Workers{workers: ws}
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}
