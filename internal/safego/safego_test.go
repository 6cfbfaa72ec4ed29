package safego

import (
	"sync"
	"testing"
	"time"
)

func waitOrFail(t *testing.T, wg *sync.WaitGroup, msg string) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error(msg)
	}
}

func TestGo_RunsFunction(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	Go("test-runner", func() {
		defer wg.Done()
	})

	waitOrFail(t, &wg, "goroutine did not complete within timeout")
}

func TestGo_RecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	// Must not crash the test process; the panic is recovered and logged.
	Go("test-panicker", func() {
		defer wg.Done()
		panic("intentional panic in test")
	})

	waitOrFail(t, &wg, "goroutine did not complete within timeout after panic")
}
