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
	"sort"
	"sync"

	"go.uber.org/multierr"
)

// HandleSet maps node indices to the processes started by one StartAll call. Nodes whose launch
// failed have no handle, only a launch error.
type HandleSet struct {
	processes    map[int]*WorkerProcess
	launchErrors map[int]error
	joined       bool

	sync.Mutex
}

func NewHandleSet() *HandleSet {
	return &HandleSet{
		processes:    make(map[int]*WorkerProcess),
		launchErrors: make(map[int]error),
	}
}

func (h *HandleSet) add(p *WorkerProcess) {
	h.Lock()
	defer h.Unlock()

	h.processes[p.Spec.Index] = p
}

func (h *HandleSet) recordLaunchError(index int, err error) {
	h.Lock()
	defer h.Unlock()

	h.launchErrors[index] = err
}

func (h *HandleSet) Get(index int) (*WorkerProcess, bool) {
	h.Lock()
	defer h.Unlock()

	p, ok := h.processes[index]
	return p, ok
}

func (h *HandleSet) Len() int {
	h.Lock()
	defer h.Unlock()

	return len(h.processes)
}

// Processes returns the started processes ordered by node index.
func (h *HandleSet) Processes() []*WorkerProcess {
	h.Lock()
	defer h.Unlock()

	output := make([]*WorkerProcess, 0, len(h.processes))
	for _, p := range h.processes {
		output = append(output, p)
	}

	sort.Slice(output, func(i, j int) bool {
		return output[i].Spec.Index < output[j].Spec.Index
	})

	return output
}

func (h *HandleSet) LaunchErrors() map[int]error {
	h.Lock()
	defer h.Unlock()

	output := make(map[int]error, len(h.launchErrors))
	for index, err := range h.launchErrors {
		output[index] = err
	}

	return output
}

// LaunchError combines all launch errors in node order.
func (h *HandleSet) LaunchError() error {
	launchErrors := h.LaunchErrors()

	indices := make([]int, 0, len(launchErrors))
	for index := range launchErrors {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var err error
	for _, index := range indices {
		err = multierr.Append(err, launchErrors[index])
	}

	return err
}

func (h *HandleSet) markJoined() bool {
	h.Lock()
	defer h.Unlock()

	if h.joined {
		return false
	}

	h.joined = true
	return true
}
