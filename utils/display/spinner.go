package display

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Spinner animates a message on a terminal while a backend call runs
type Spinner struct {
	chars    []string
	index    int
	message  string
	out      io.Writer
	tty      bool
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopped  bool
	disabled bool
}

// NewSpinnerTo creates a spinner writing to w
func NewSpinnerTo(w io.Writer) *Spinner {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &Spinner{
		chars:    []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		out:      w,
		tty:      tty,
		stop:     make(chan struct{}),
		stopped:  true,
		disabled: !tty,
	}
}

// Disable prevents the spinner from showing any output
func (s *Spinner) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

// Enable turns output back on, even when the writer is not a terminal
func (s *Spinner) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = false
}

// Start shows message followed by the animation until Stop is called
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.disabled || !s.stopped {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.stopped = false
	s.message = message
	stop := s.stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.tty {
			fmt.Fprint(s.out, "\033[?25l")
		}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s... %s", s.message, s.chars[s.index])
			s.index = (s.index + 1) % len(s.chars)
			s.mu.Unlock()

			select {
			case <-stop:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s... Done!     \n", s.message)
				s.mu.Unlock()
				if s.tty {
					fmt.Fprint(s.out, "\033[?25h")
				}
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and waits for the final line to be written
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
	s.mu.Unlock()
	s.wg.Wait()
}
