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
	"time"
)

var ErrAlreadyJoined = errors.New("handle set has already been joined")

// ProcessLaunchError is recorded for a node whose process never started. Other launches are not affected.
type ProcessLaunchError struct {
	Index  int
	Role   Role
	Binary string
	Err    error
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s %d (%s): %v", e.Role, e.Index, e.Binary, e.Err)
}

func (e *ProcessLaunchError) Unwrap() error {
	return e.Err
}

// ProcessStopTimeoutError means the process outlived the grace period and was force killed.
type ProcessStopTimeoutError struct {
	Index       int
	Role        Role
	Pid         int
	GracePeriod time.Duration
}

func (e *ProcessStopTimeoutError) Error() string {
	return fmt.Sprintf("%s %d (pid %d) did not stop within %s, escalated to SIGKILL", e.Role, e.Index, e.Pid, e.GracePeriod)
}

// ProcessExitError is reported by JoinAll for a process that died before anyone asked it to stop.
type ProcessExitError struct {
	Index int
	Role  Role
	Pid   int
	Err   error
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("%s %d (pid %d) exited unexpectedly: %v", e.Role, e.Index, e.Pid, e.Err)
}

func (e *ProcessExitError) Unwrap() error {
	return e.Err
}
