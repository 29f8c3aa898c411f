/*
 * MIT License
 *
 * Copyright (c) 2024 EASL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

type Role string

const (
	RoleWorker           Role = "worker"
	RoleTrafficGenerator Role = "trafficgen"
)

type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopRequested
	StateStopped
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateStopRequested:
		return "StopRequested"
	case StateStopped:
		return "Stopped"
	case StateKilled:
		return "Killed"
	default:
		return "Unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateStopped || s == StateKilled
}

var allowedTransitions = map[State][]State{
	StateCreated:       {StateRunning},
	StateRunning:       {StateStopRequested, StateStopped, StateKilled},
	StateStopRequested: {StateStopped, StateKilled},
}

// ProcessSpec describes one process to launch.
type ProcessSpec struct {
	Index   int
	Role    Role
	Binary  string
	Args    []string
	Elevate bool
	LogPath string
}

// WorkerProcess is a handle on one launched process and the process group it leads.
type WorkerProcess struct {
	Spec    ProcessSpec
	Command []string

	cmd     *exec.Cmd
	logFile *os.File

	pid  int
	pgid int

	state          State
	exitErr        error
	exitedOnItsOwn bool
	done           chan struct{}

	sync.Mutex
}

func newWorkerProcess(spec ProcessSpec, command []string) *WorkerProcess {
	return &WorkerProcess{
		Spec:    spec,
		Command: command,
		state:   StateCreated,
		done:    make(chan struct{}),
	}
}

func (p *WorkerProcess) Pid() int {
	return p.pid
}

func (p *WorkerProcess) Pgid() int {
	return p.pgid
}

func (p *WorkerProcess) State() State {
	p.Lock()
	defer p.Unlock()

	return p.state
}

// Done is closed once the process has been reaped.
func (p *WorkerProcess) Done() <-chan struct{} {
	return p.done
}

func (p *WorkerProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitError is only meaningful after Done is closed.
func (p *WorkerProcess) ExitError() error {
	p.Lock()
	defer p.Unlock()

	return p.exitErr
}

// transition moves the process to a new state. Terminal states are never left.
func (p *WorkerProcess) transition(to State) bool {
	p.Lock()
	defer p.Unlock()

	return p.transitionLocked(to)
}

func (p *WorkerProcess) transitionLocked(to State) bool {
	for _, allowed := range allowedTransitions[p.state] {
		if allowed == to {
			p.state = to
			return true
		}
	}

	return false
}

// reap waits for the process so that it never lingers as a zombie.
func (p *WorkerProcess) reap() {
	err := p.cmd.Wait()

	if p.logFile != nil {
		_ = p.logFile.Close()
	}

	p.Lock()
	p.exitErr = err
	p.exitedOnItsOwn = p.state == StateRunning
	p.transitionLocked(StateStopped)
	p.Unlock()

	close(p.done)
}

// signalGroup signals every process in the group. A group that no longer exists is not an error.
func (p *WorkerProcess) signalGroup(signal syscall.Signal) error {
	err := unix.Kill(-p.pgid, signal)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}

	return err
}
