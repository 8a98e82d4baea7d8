package i3block

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Controller tracks the i3blocks process and pokes it with SIGUSR1 so the
// lyrics block re-renders.
type Controller struct {
	pid       int
	pidMutex  sync.RWMutex
	ticker    *time.Ticker
	stopChan  chan struct{}
	isRunning bool
	runMutex  sync.Mutex
}

func NewController() *Controller {
	return &Controller{
		pid:      -1,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic PID refresh.
func (c *Controller) Start() error {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	if c.isRunning {
		return fmt.Errorf("controller is already running")
	}

	if err := c.refreshPID(); err != nil {
		log.Debug().Err(err).Msg("i3blocks not found at startup")
	}

	c.ticker = time.NewTicker(10 * time.Second)
	c.isRunning = true

	go c.monitorLoop()

	log.Info().Msg("i3block controller started")
	return nil
}

func (c *Controller) Stop() {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	if !c.isRunning {
		return
	}

	close(c.stopChan)
	c.ticker.Stop()
	c.isRunning = false

	log.Info().Msg("i3block controller stopped")
}

func (c *Controller) monitorLoop() {
	for {
		select {
		case <-c.ticker.C:
			if err := c.refreshPID(); err != nil {
				log.Debug().Err(err).Msg("Failed to refresh i3blocks PID")
			}
		case <-c.stopChan:
			return
		}
	}
}

func (c *Controller) refreshPID() error {
	cmd := exec.Command("pgrep", "-f", "i3blocks")
	output, err := cmd.Output()
	if err != nil {
		return c.refreshPIDAlternative()
	}

	pidStr := strings.TrimSpace(string(output))
	if pidStr == "" {
		c.setPID(-1)
		return fmt.Errorf("i3blocks process not found")
	}

	// pgrep may return several PIDs, take the first.
	lines := strings.Split(pidStr, "\n")
	pid, err := strconv.Atoi(lines[0])
	if err != nil {
		return fmt.Errorf("failed to parse PID: %v", err)
	}

	c.setPID(pid)
	return nil
}

func (c *Controller) refreshPIDAlternative() error {
	cmd := exec.Command("ps", "aux")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to run ps command: %v", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		if strings.Contains(line, "i3blocks") && !strings.Contains(line, "grep") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				pid, err := strconv.Atoi(fields[1])
				if err != nil {
					continue
				}
				c.setPID(pid)
				return nil
			}
		}
	}

	c.setPID(-1)
	return fmt.Errorf("i3blocks process not found")
}

func (c *Controller) setPID(pid int) {
	c.pidMutex.Lock()
	oldPID := c.pid
	c.pid = pid
	c.pidMutex.Unlock()

	if oldPID != pid && pid > 0 {
		log.Info().Int("old_pid", oldPID).Int("pid", pid).Msg("i3blocks PID updated")
	}
}

func (c *Controller) GetPID() int {
	c.pidMutex.RLock()
	defer c.pidMutex.RUnlock()
	return c.pid
}

// Notify sends SIGUSR1 to i3blocks. Callers treat failure as non-fatal since
// i3blocks may simply not be running.
func (c *Controller) Notify() error {
	c.pidMutex.RLock()
	pid := c.pid
	c.pidMutex.RUnlock()

	if pid <= 0 {
		return fmt.Errorf("i3blocks process not found")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %v", pid, err)
	}

	if err := process.Signal(syscall.SIGUSR1); err != nil {
		return fmt.Errorf("failed to send SIGUSR1 to process %d: %v", pid, err)
	}
	return nil
}

func (c *Controller) IsRunning() bool {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	return c.isRunning
}
