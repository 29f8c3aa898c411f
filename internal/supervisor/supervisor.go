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
	"chain_orchestrator/pkg/config"
	"chain_orchestrator/pkg/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
	"k8s.io/apimachinery/pkg/util/wait"
)

type Config struct {
	// Elevation is prepended to processes whose spec asks for it, e.g. ["sudo"].
	Elevation    []string
	GracePeriod  time.Duration
	PollInterval time.Duration
}

func ConfigFromWorker(cfg config.WorkerConfig) Config {
	return Config{
		Elevation:    utils.ElevationPrefix(cfg.Elevate),
		GracePeriod:  cfg.GracePeriod,
		PollInterval: cfg.PollInterval,
	}
}

// Supervisor owns the lifecycle of the processes it starts. Every started process is reaped by a
// dedicated goroutine, and leads its own process group so that the whole tree can be signalled.
type Supervisor struct {
	cfg Config

	// pid -> process, for marking processes hit by a pattern sweep
	tracked map[int]*WorkerProcess
	sync.Mutex
}

func NewSupervisor(cfg Config) *Supervisor {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = utils.DefaultGracePeriod
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = utils.DefaultPollInterval
	}

	return &Supervisor{
		cfg:     cfg,
		tracked: make(map[int]*WorkerProcess),
	}
}

func (s *Supervisor) commandLine(spec ProcessSpec) []string {
	command := make([]string, 0, len(s.cfg.Elevation)+len(spec.Args)+1)
	if spec.Elevate {
		command = append(command, s.cfg.Elevation...)
	}

	command = append(command, spec.Binary)
	return append(command, spec.Args...)
}

// StartAll launches every spec in order. A failed launch is recorded in the returned set and does
// not prevent the remaining launches. Once ctx is cancelled, remaining specs are recorded as failed.
func (s *Supervisor) StartAll(ctx context.Context, specs []ProcessSpec) *HandleSet {
	handles := NewHandleSet()

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			handles.recordLaunchError(spec.Index, &ProcessLaunchError{Index: spec.Index, Role: spec.Role, Binary: spec.Binary, Err: err})
			continue
		}

		p, err := s.start(spec)
		if err != nil {
			logrus.WithField("node", spec.Index).Errorf("Failed to launch %s - %v", spec.Role, err)
			handles.recordLaunchError(spec.Index, err)
			continue
		}

		handles.add(p)
	}

	logrus.Infof("Started %d out of %d processes", handles.Len(), len(specs))

	return handles
}

func (s *Supervisor) start(spec ProcessSpec) (*WorkerProcess, error) {
	command := s.commandLine(spec)
	p := newWorkerProcess(spec, command)

	launchError := func(err error) error {
		return &ProcessLaunchError{Index: spec.Index, Role: spec.Role, Binary: spec.Binary, Err: err}
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if spec.LogPath != "" {
		logFile, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return nil, launchError(err)
		}

		cmd.Stdout = logFile
		cmd.Stderr = logFile
		p.logFile = logFile
	}

	logrus.WithField("node", spec.Index).Debugf("Launching %v", command)

	if err := cmd.Start(); err != nil {
		if p.logFile != nil {
			_ = p.logFile.Close()
		}

		return nil, launchError(err)
	}

	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.pgid = cmd.Process.Pid
	p.transition(StateRunning)

	s.Lock()
	s.tracked[p.pid] = p
	s.Unlock()

	go func() {
		p.reap()

		s.Lock()
		if s.tracked[p.pid] == p {
			delete(s.tracked, p.pid)
		}
		s.Unlock()

		logrus.WithField("node", spec.Index).Debugf("%s with pid %d reaped (%v)", spec.Role, p.pid, p.ExitError())
	}()

	return p, nil
}

// StopAll asks every process to terminate and escalates to SIGKILL after the grace period. It returns
// once every process has exited or has been force killed. Processes that already exited are skipped.
func (s *Supervisor) StopAll(handles *HandleSet) error {
	var (
		wg     sync.WaitGroup
		mutex  sync.Mutex
		result error
	)

	for _, p := range handles.Processes() {
		wg.Add(1)

		go func(p *WorkerProcess) {
			defer wg.Done()

			if err := s.stop(p); err != nil {
				mutex.Lock()
				result = multierr.Append(result, err)
				mutex.Unlock()
			}
		}(p)
	}

	wg.Wait()

	return result
}

func (s *Supervisor) stop(p *WorkerProcess) error {
	logger := logrus.WithField("node", p.Spec.Index)

	leaderRunning := !p.Exited() && p.transition(StateStopRequested)
	if !leaderRunning {
		if !groupAlive(p.pgid) {
			logger.Debugf("%s with pid %d already exited", p.Spec.Role, p.pid)
			return nil
		}

		logger.Debugf("%s with pid %d already exited, stopping the rest of process group %d", p.Spec.Role, p.pid, p.pgid)
	}

	if err := s.signal(p, unix.SIGTERM); err != nil {
		logger.Warnf("Failed to send SIGTERM to process group %d - %v", p.pgid, err)
	}

	if s.waitForExit(p, s.cfg.GracePeriod) {
		logger.Debugf("%s with pid %d stopped gracefully", p.Spec.Role, p.pid)
		return nil
	}

	timeoutErr := &ProcessStopTimeoutError{Index: p.Spec.Index, Role: p.Spec.Role, Pid: p.pid, GracePeriod: s.cfg.GracePeriod}
	logger.Warn(timeoutErr.Error())

	p.transition(StateKilled)
	if err := s.signal(p, unix.SIGKILL); err != nil {
		return multierr.Append(timeoutErr, fmt.Errorf("failed to kill process group %d: %w", p.pgid, err))
	}

	if !s.waitForExit(p, s.cfg.GracePeriod) {
		logger.Errorf("%s with pid %d still alive after SIGKILL", p.Spec.Role, p.pid)
	}

	return timeoutErr
}

// signal delivers sig to the process group, retrying through the elevation prefix if the group
// contains processes owned by another user.
func (s *Supervisor) signal(p *WorkerProcess, sig syscall.Signal) error {
	err := p.signalGroup(sig)
	if errors.Is(err, unix.EPERM) && p.Spec.Elevate && len(s.cfg.Elevation) > 0 {
		return s.elevatedKill(sig, "-"+strconv.Itoa(p.pgid))
	}

	return err
}

func (s *Supervisor) elevatedKill(sig syscall.Signal, target string) error {
	args := append(append([]string{}, s.cfg.Elevation[1:]...), "kill", "-"+strconv.Itoa(int(sig)), "--", target)

	output, err := exec.Command(s.cfg.Elevation[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, string(output))
	}

	return nil
}

// waitForExit waits until the leader has been reaped and no other member of its group is left.
func (s *Supervisor) waitForExit(p *WorkerProcess, timeout time.Duration) bool {
	err := wait.PollUntilContextTimeout(context.Background(), s.cfg.PollInterval, timeout, true,
		func(_ context.Context) (bool, error) {
			return p.Exited() && !groupAlive(p.pgid), nil
		})

	return err == nil
}

// JoinAll blocks until every process of the set has been reaped. It may be called once per set and
// reports launch failures and processes that died without being asked to.
func (s *Supervisor) JoinAll(handles *HandleSet) error {
	if !handles.markJoined() {
		return ErrAlreadyJoined
	}

	result := handles.LaunchError()

	for _, p := range handles.Processes() {
		<-p.Done()

		p.Lock()
		exitErr, onItsOwn := p.exitErr, p.exitedOnItsOwn
		p.Unlock()

		if onItsOwn && exitErr != nil {
			result = multierr.Append(result, &ProcessExitError{Index: p.Spec.Index, Role: p.Spec.Role, Pid: p.pid, Err: exitErr})
		}
	}

	logrus.Infof("All %d processes have been joined", handles.Len())

	return result
}

// killTracked runs kill while holding the lock of the tracked process with that pid, so that its
// reaper observes the Killed state rather than an unexpected exit.
func (s *Supervisor) killTracked(pid int, kill func() error) error {
	s.Lock()
	p, ok := s.tracked[pid]
	s.Unlock()

	if !ok {
		return kill()
	}

	p.Lock()
	defer p.Unlock()

	err := kill()
	if err == nil && p.transitionLocked(StateKilled) {
		logrus.WithField("node", p.Spec.Index).Debugf("%s with pid %d killed by pattern sweep", p.Spec.Role, pid)
	}

	return err
}
