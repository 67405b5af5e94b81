package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Terminal owns stdin. A single goroutine reads lines and routes each one
// either to a pending Ask or to the command loop.
type Terminal struct {
	in  io.Reader
	out io.Writer

	once   sync.Once
	lines  chan string
	closed chan struct{}

	mu     sync.Mutex
	waiter chan string

	askMu sync.Mutex
	outMu sync.Mutex
}

func NewTerminal() *Terminal {
	return newTerminal(os.Stdin, os.Stdout)
}

func newTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:     in,
		out:    out,
		lines:  make(chan string),
		closed: make(chan struct{}),
	}
}

func (t *Terminal) start() {
	t.once.Do(func() {
		go t.read()
	})
}

func (t *Terminal) read() {
	defer close(t.closed)

	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		line := scanner.Text()

		t.mu.Lock()
		waiter := t.waiter
		t.waiter = nil
		t.mu.Unlock()

		if waiter != nil {
			waiter <- line

			continue
		}

		t.lines <- line
	}
}

// ReadLine returns the next line not claimed by a prompt. It returns false
// on end of input or when ctx is done.
func (t *Terminal) ReadLine(ctx context.Context) (string, bool) {
	t.start()

	select {
	case line := <-t.lines:
		return line, true
	case <-t.closed:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// Ask prints question and waits for the operator's answer. Only one question
// is outstanding at a time.
func (t *Terminal) Ask(ctx context.Context, question string) (string, bool) {
	t.start()

	t.askMu.Lock()
	defer t.askMu.Unlock()

	reply := make(chan string, 1)

	t.mu.Lock()
	t.waiter = reply
	t.mu.Unlock()

	t.Printf("%s", question)

	select {
	case line := <-reply:
		return line, true
	case <-t.closed:
	case <-ctx.Done():
	}

	t.mu.Lock()
	if t.waiter == reply {
		t.waiter = nil
	}
	t.mu.Unlock()

	return "", false
}

func (t *Terminal) Printf(format string, args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()

	fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) Println(args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()

	fmt.Fprintln(t.out, args...)
}
