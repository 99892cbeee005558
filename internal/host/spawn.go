package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
)

// InProcess runs workers as goroutines connected through pipes. A killed
// worker has its run interrupted; a worker stuck outside the engine cannot
// be reclaimed, which Subprocess avoids.
type InProcess struct {
	Options WorkerOptions
}

func (p InProcess) Spawn(id uint64) (Instance, error) {
	reqR, reqW := io.Pipe()
	msgR, msgW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	opts := p.Options
	opts.ID = id
	w := NewWorker(opts)
	go func() {
		err := w.Serve(ctx, reqR, msgW)
		if err == nil {
			err = io.EOF
		}
		msgW.CloseWithError(err)
	}()

	return &pipeInstance{
		Reader: msgR,
		Writer: reqW,
		kill: func() {
			cancel()
			reqW.Close()
			msgR.Close()
		},
	}, nil
}

type pipeInstance struct {
	io.Reader
	io.Writer
	once sync.Once
	kill func()
}

func (p *pipeInstance) Kill() error {
	p.once.Do(p.kill)
	return nil
}

// Subprocess runs each worker as "<Path> worker --id N" and talks to it
// over stdin and stdout.
type Subprocess struct {
	Path   string   // executable; empty means the running binary
	Args   []string // extra arguments after "worker"
	Stderr io.Writer
}

func (p Subprocess) Spawn(id uint64) (Instance, error) {
	path := p.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}
	args := append([]string{"worker", "--id", strconv.FormatUint(id, 10)}, p.Args...)
	cmd := exec.Command(path, args...)
	cmd.Stderr = p.Stderr
	isolate(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	return &process{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// process reaps its child only once stdout has ended or the child has been
// killed: exec.Cmd.Wait closes stdout and would drop unread messages.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	kill    sync.Once
	reap    sync.Once
	waitErr error
}

func (p *process) wait() error {
	p.reap.Do(func() { p.waitErr = p.cmd.Wait() })
	return p.waitErr
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, os.ErrClosed) {
		err = io.EOF
	}
	if err == io.EOF {
		_ = p.wait()
	}
	return n, err
}

func (p *process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *process) Kill() error {
	var err error
	p.kill.Do(func() {
		_ = p.stdin.Close()
		err = killGroup(p.cmd)
		_ = p.wait()
	})
	return err
}
