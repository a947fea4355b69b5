package recovery

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

// captureExit swaps output and exit for the duration of the test.
func captureExit(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()

	var buf bytes.Buffer
	code := -1
	prevOut, prevExit := output, exit
	output = &buf
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		output = prevOut
		exit = prevExit
	})
	return &buf, &code
}

func TestHandlePanic_NoPanic(t *testing.T) {
	buf, code := captureExit(t)

	func() {
		defer HandlePanic()
	}()

	if *code != -1 {
		t.Errorf("exit called with %d without a panic", *code)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestHandlePanic_ReportsAndExits(t *testing.T) {
	buf, code := captureExit(t)

	func() {
		defer HandlePanic()
		panic("pin vanished")
	}()

	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
	for _, want := range []string{"FATAL", "pin vanished", "Stack trace"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q: %s", want, buf.String())
		}
	}
}

func TestHandlePanicFunc_CleanupRunsOnPanic(t *testing.T) {
	_, code := captureExit(t)
	cleaned := false

	func() {
		defer HandlePanicFunc(func() { cleaned = true })
		panic("boom")
	}()

	if !cleaned {
		t.Error("cleanup was not called")
	}
	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
}

func TestHandlePanicFunc_NoPanic(t *testing.T) {
	_, code := captureExit(t)
	cleaned := false

	func() {
		defer HandlePanicFunc(func() { cleaned = true })
	}()

	if cleaned {
		t.Error("cleanup was called without a panic")
	}
	if *code != -1 {
		t.Errorf("exit called with %d without a panic", *code)
	}
}

func TestHandlePanicFunc_NilCleanup(t *testing.T) {
	_, code := captureExit(t)

	func() {
		defer HandlePanicFunc(nil)
		panic("boom")
	}()

	if *code != 1 {
		t.Errorf("exit code = %d, want 1", *code)
	}
}

func TestGo_RecoversOnGoroutine(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	done := make(chan int, 1)

	prevOut, prevExit := output, exit
	output = writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	})
	exit = func(c int) { done <- c }
	t.Cleanup(func() {
		output = prevOut
		exit = prevExit
	})

	Go(func() { panic("tick goroutine") }, nil)

	select {
	case c := <-done:
		if c != 1 {
			t.Errorf("exit code = %d, want 1", c)
		}
	case <-time.After(time.Second):
		t.Fatal("goroutine panic was not recovered")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "tick goroutine") {
		t.Errorf("output missing panic value: %s", buf.String())
	}
}

// TestHandlePanic_ExitsProcess checks the real os.Exit path in a subprocess.
func TestHandlePanic_ExitsProcess(t *testing.T) {
	if os.Getenv("TEST_PANIC_EXIT") == "1" {
		defer HandlePanic()
		panic("test panic")
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestHandlePanic_ExitsProcess")
	cmd.Env = append(os.Environ(), "TEST_PANIC_EXIT=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() != 1 {
			t.Errorf("exit code = %d, want 1", exitErr.ExitCode())
		}
	} else if err == nil {
		t.Error("expected process to exit with error, but it succeeded")
	}

	if !bytes.Contains(stderr.Bytes(), []byte("test panic")) {
		t.Errorf("stderr should contain 'test panic', got: %s", stderr.String())
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
