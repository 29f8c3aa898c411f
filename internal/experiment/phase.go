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

package experiment

type Phase int

const (
	PhaseValidate Phase = iota
	PhaseBuild
	PhaseEmit
	PhaseStartWorkers
	PhaseSettle
	PhaseEmitScripts
	PhaseCheckpointDownstream
	PhaseLaunchTraffic
	PhaseCheckpointTraffic
	PhaseCheckpointRecord
	PhaseStopTraffic
	PhaseStopWorkers
	PhaseJoin
	PhaseDone
)

var phaseNames = [...]string{
	PhaseValidate:             "Validate",
	PhaseBuild:                "Build",
	PhaseEmit:                 "Emit",
	PhaseStartWorkers:         "StartWorkers",
	PhaseSettle:               "Settle",
	PhaseEmitScripts:          "EmitScripts",
	PhaseCheckpointDownstream: "CheckpointDownstream",
	PhaseLaunchTraffic:        "LaunchTraffic",
	PhaseCheckpointTraffic:    "CheckpointTraffic",
	PhaseCheckpointRecord:     "CheckpointRecord",
	PhaseStopTraffic:          "StopTraffic",
	PhaseStopWorkers:          "StopWorkers",
	PhaseJoin:                 "Join",
	PhaseDone:                 "Done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}

	return phaseNames[p]
}

// Checkpoint is a point at which the run waits for the operator.
type Checkpoint int

const (
	CheckpointDownstream Checkpoint = iota
	CheckpointTraffic
	CheckpointRecord
)

func (c Checkpoint) String() string {
	switch c {
	case CheckpointDownstream:
		return "downstream"
	case CheckpointTraffic:
		return "traffic"
	case CheckpointRecord:
		return "record"
	default:
		return "unknown"
	}
}

func (c Checkpoint) Prompt() string {
	switch c {
	case CheckpointDownstream:
		return "Please make sure the downstream packet generator has started. Ready to start the experiment?"
	case CheckpointTraffic:
		return "Make sure the traffic generators are running, then continue."
	case CheckpointRecord:
		return "Record the numbers. Continuing stops all chain nodes."
	default:
		return "Continue?"
	}
}
