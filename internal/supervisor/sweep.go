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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

func isGone(err error) bool {
	return errors.Is(err, unix.ESRCH) || errors.Is(err, os.ErrProcessDone) || errors.Is(err, process.ErrorProcessNotRunning)
}

// KillByNamePattern sends SIGKILL to every process on the host whose name or command line matches
// pattern, except this process and its parent. This is a blunt last resort for processes that
// escaped their process group, e.g. a worker whose elevation wrapper already exited. Returns the
// number of processes killed.
func (s *Supervisor) KillByNamePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid process pattern %q: %w", pattern, err)
	}

	processes, err := process.Processes()
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	self, parent := int32(os.Getpid()), int32(os.Getppid())

	var result error
	killed := 0

	for _, p := range processes {
		if p.Pid == self || p.Pid == parent || !matches(p, re) {
			continue
		}

		target := p
		err := s.killTracked(int(p.Pid), func() error {
			err := target.Kill()
			if errors.Is(err, unix.EPERM) && len(s.cfg.Elevation) > 0 {
				err = s.elevatedKill(unix.SIGKILL, strconv.Itoa(int(target.Pid)))
			}

			return err
		})
		if err != nil && isGone(err) {
			continue
		}
		if err != nil {
			result = multierr.Append(result, fmt.Errorf("failed to kill pid %d: %w", p.Pid, err))
			continue
		}

		killed++
	}

	logrus.Infof("Killed %d processes matching %q", killed, pattern)

	return killed, result
}

func matches(p *process.Process, re *regexp.Regexp) bool {
	name, err := p.Name()
	if err == nil && re.MatchString(name) {
		return true
	}

	cmdline, err := p.Cmdline()
	return err == nil && re.MatchString(cmdline)
}

// SweepManifest force kills the process groups recorded by a previous run. Groups whose leader is
// gone or now runs a different binary are left alone.
func (s *Supervisor) SweepManifest(manifest *Manifest) (int, error) {
	var result error
	killed := 0

	for _, entry := range manifest.Processes {
		logger := logrus.WithField("node", entry.Index)

		if !leaderStillRuns(entry) {
			logger.Debugf("Process group %d from run %s is gone", entry.Pgid, manifest.RunID)
			continue
		}

		err := unix.Kill(-entry.Pgid, unix.SIGKILL)
		if errors.Is(err, unix.EPERM) && len(s.cfg.Elevation) > 0 {
			err = s.elevatedKill(unix.SIGKILL, "-"+strconv.Itoa(entry.Pgid))
		}
		if err != nil && !isGone(err) {
			result = multierr.Append(result, fmt.Errorf("failed to kill process group %d: %w", entry.Pgid, err))
			continue
		}

		killed++
		logger.Infof("Killed leftover %s process group %d", entry.Role, entry.Pgid)
	}

	return killed, result
}

// groupAlive reports whether the process group still has a member that is not a zombie. Orphaned
// members are reparented to a process that may never reap them.
func groupAlive(pgid int) bool {
	if pgid <= 0 {
		return false
	}

	err := unix.Kill(-pgid, 0)
	if errors.Is(err, unix.ESRCH) {
		return false
	}
	if err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}

	pids, err := process.Pids()
	if err != nil {
		return true
	}

	for _, pid := range pids {
		if group, err := unix.Getpgid(int(pid)); err != nil || group != pgid {
			continue
		}

		p, err := process.NewProcess(pid)
		if err != nil {
			continue
		}

		if status, err := p.Status(); err != nil || status != "Z" {
			return true
		}
	}

	return false
}

// leaderStillRuns guards against pid reuse. The leader must still run the recorded binary, not just
// the elevation wrapper in front of it.
func leaderStillRuns(entry ManifestEntry) bool {
	binary := entry.Binary
	if binary == "" && len(entry.Command) > 0 {
		binary = entry.Command[0]
	}

	if entry.Pgid <= 0 || binary == "" {
		return false
	}

	p, err := process.NewProcess(int32(entry.Pgid))
	if err != nil {
		return false
	}

	cmdline, err := p.Cmdline()
	if err != nil {
		return false
	}

	return strings.Contains(cmdline, filepath.Base(binary))
}
