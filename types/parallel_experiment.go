package types

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TERMINAL PRINTER

// TerminalPrinter refreshes one terminal line per running experiment
type TerminalPrinter struct {
	parallelOutputs []*ParallelOutput
	ctx             context.Context
	cancel          context.CancelFunc
	frequency       time.Duration
	done            chan struct{}

	writer  *uilive.Writer
	writers []io.Writer
}

func NewTerminalPrinter(ctx context.Context, parallelOutputs []*ParallelOutput, frequency time.Duration) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	size := len(parallelOutputs)
	writer := uilive.New()
	writers := make([]io.Writer, 0, size)
	for i := 0; i < size-1; i++ {
		writers = append(writers, writer.Newline())
	}

	return &TerminalPrinter{
		parallelOutputs: parallelOutputs,
		ctx:             printerCtx,
		cancel:          cancel,
		frequency:       frequency,
		done:            make(chan struct{}),

		writer:  writer,
		writers: writers,
	}
}

// SetOutput redirects the printer, stdout by default
func (p *TerminalPrinter) SetOutput(w io.Writer) {
	p.writer.Out = w
}

func (p *TerminalPrinter) Start() {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.ctx.Done():
				p.print()
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

// Stop prints the last statuses and waits for the printer to exit
func (p *TerminalPrinter) Stop() {
	p.cancel()
	<-p.done
}

func (p *TerminalPrinter) print() {
	for i, output := range p.parallelOutputs {
		s := output.Get()
		if s == "" {
			continue
		}
		if i == 0 {
			fmt.Fprint(p.writer, s+"\n")
		} else {
			fmt.Fprint(p.writers[i-1], s+"\n")
		}
	}
	p.writer.Flush()
}

// PARALLEL OUTPUT

// used to update and print experiment outputs
type ParallelOutput struct {
	mu        sync.Mutex
	printable string
	running   bool
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{
		printable: "",
	}
}

// Set the output string (blocking)
func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

// Try to set the output string (non-blocking)
func (p *ParallelOutput) TrySet(s string) bool {
	if p.mu.TryLock() {
		defer p.mu.Unlock()
		p.printable = s
		return true
	}
	return false
}

// Get the output string (blocking)
func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}

func (p *ParallelOutput) SetRunning(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = running
}

func (p *ParallelOutput) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
