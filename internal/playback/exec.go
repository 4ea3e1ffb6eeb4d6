package playback

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"cadence/internal/shared"
)

// playerCandidates are tried in order when no player is configured.
var playerCandidates = []string{"mpv", "ffplay"}

// ExecOutput plays tracks by running an external player process per
// track. Pause and resume map to SIGSTOP/SIGCONT; position is derived
// from wall time while the process runs, since the players offer no
// progress protocol on a plain invocation.
type ExecOutput struct {
	player string
	logger *log.Logger
}

// NewExecOutput finds a usable player on PATH. An explicit player name
// skips the search.
func NewExecOutput(player string, logger *log.Logger) (*ExecOutput, error) {
	candidates := playerCandidates
	if player != "" {
		candidates = []string{player}
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return &ExecOutput{player: path, logger: shared.WithLogger(logger, "component", "output")}, nil
		}
	}
	return nil, fmt.Errorf("%w: none of %v found on PATH", shared.ErrOutputUnavailable, candidates)
}

func (o *ExecOutput) Open(path string) (Handle, error) {
	cmd := o.command(path)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrOutputUnavailable, err)
	}

	h := &execHandle{
		cmd:     cmd,
		logger:  o.logger,
		reports: make(chan Notification, 16),
		stop:    make(chan struct{}),
	}
	go h.track()
	return h, nil
}

func (o *ExecOutput) command(path string) *exec.Cmd {
	switch {
	case hasSuffix(o.player, "mpv"):
		return exec.Command(o.player, "--no-video", "--really-quiet", path)
	case hasSuffix(o.player, "ffplay"):
		return exec.Command(o.player, "-nodisp", "-autoexit", "-loglevel", "quiet", path)
	default:
		return exec.Command(o.player, path)
	}
}

func hasSuffix(path, name string) bool {
	return len(path) >= len(name) && path[len(path)-len(name):] == name
}

type execHandle struct {
	cmd     *exec.Cmd
	logger  *log.Logger
	reports chan Notification
	stop    chan struct{}

	mu       sync.Mutex
	closed   bool
	paused   bool
	position time.Duration
}

// The players start playing the moment the process starts; Play after
// Pause resumes with SIGCONT.
func (h *execHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.paused {
		return nil
	}
	if err := h.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("failed to resume player: %w", err)
	}
	h.paused = false
	return nil
}

func (h *execHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.paused {
		return nil
	}
	if err := h.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("failed to pause player: %w", err)
	}
	h.paused = true
	return nil
}

// Seek is not possible over a plain process invocation; the players
// would need an IPC channel.
func (h *execHandle) Seek(position time.Duration) error {
	return fmt.Errorf("%w: seek requires a player control channel", shared.ErrNotImplemented)
}

// SetVolume is accepted but only applies from the next track; the
// players offer no runtime volume control over this transport.
func (h *execHandle) SetVolume(v float64) error {
	return nil
}

func (h *execHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.stop)
	if h.cmd.Process != nil {
		// SIGCONT first so a paused process can see the kill.
		_ = h.cmd.Process.Signal(syscall.SIGCONT)
		_ = h.cmd.Process.Kill()
	}
	return nil
}

func (h *execHandle) Notifications() <-chan Notification {
	return h.reports
}

// track accumulates position while the process runs and reports
// end-of-track when it exits on its own.
func (h *execHandle) track() {
	defer close(h.reports)

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			<-done
			return

		case err := <-done:
			h.mu.Lock()
			closed := h.closed
			h.mu.Unlock()
			if closed {
				return
			}
			if err != nil {
				h.reports <- Notification{Err: fmt.Errorf("player exited: %w", err)}
				return
			}
			h.reports <- Notification{EndOfTrack: true}
			return

		case <-ticker.C:
			h.mu.Lock()
			if !h.paused {
				h.position += 500 * time.Millisecond
			}
			pos := h.position
			closed := h.closed
			h.mu.Unlock()
			if closed {
				return
			}
			select {
			case h.reports <- Notification{Position: pos}:
			default:
				// Position reports are droppable; only end-of-track must land.
			}
		}
	}
}
