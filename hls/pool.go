package hls

import "sync"

// runPool executes independent jobs with bounded parallelism and reports how
// many failed. Job completion order is unconstrained; callers restore ordering
// afterwards through deterministic naming, never through scheduling order.
func runPool(width int, jobs []func() error) (failed int) {
	if width < 1 {
		width = 1
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		semaphore = make(chan struct{}, width)
	)

	for _, job := range jobs {
		wg.Add(1)
		go func(job func() error) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := job(); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(job)
	}

	wg.Wait()
	return failed
}
