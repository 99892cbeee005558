package host

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

// helperEnv makes the test binary act as a worker process when it is
// started by Subprocess.
const helperEnv = "STEPPER_HOST_HELPER"

const burstSize = 300

func TestMain(m *testing.M) {
	switch os.Getenv(helperEnv) {
	case "burst":
		os.Exit(burst())
	case "hang":
		time.Sleep(time.Hour)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// burst writes well over a pipe buffer of messages and exits at once.
func burst() int {
	enc := NewEncoder(os.Stdout)
	pad := strings.Repeat("x", 4096)
	for i := 1; i <= burstSize; i++ {
		if err := enc.Encode(&Message{Alive: uint64(i), Code: pad}); err != nil {
			return 1
		}
	}
	return 0
}

func helper(t *testing.T, mode string) Instance {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("no executable: %v", err)
	}
	t.Setenv(helperEnv, mode)
	inst, err := Subprocess{Path: exe}.Spawn(1)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	return inst
}

func TestSubprocessDeliversEverythingBeforeExit(t *testing.T) {
	inst := helper(t, "burst")
	defer inst.Kill()

	dec := NewDecoder(inst)
	var got, last uint64
	for {
		var m Message
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("decode after %d messages: %v", got, err)
		}
		got++
		last = m.Alive
	}
	if got != burstSize || last != burstSize {
		t.Fatalf("read %d messages ending at %d, want %d", got, last, burstSize)
	}
}

func TestSubprocessKill(t *testing.T) {
	inst := helper(t, "hang")

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(inst)
		done <- err
	}()

	if err := inst.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := inst.Kill(); err != nil {
		t.Fatalf("second kill: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("read after kill: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reader still blocked after kill")
	}
}
