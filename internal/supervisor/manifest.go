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
	"chain_orchestrator/pkg/utils"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ManifestEntry struct {
	Index   int      `yaml:"index"`
	Role    Role     `yaml:"role"`
	Pid     int      `yaml:"pid"`
	Pgid    int      `yaml:"pgid"`
	Binary  string   `yaml:"binary"`
	Command []string `yaml:"command"`
	LogPath string   `yaml:"logPath,omitempty"`
}

// Manifest records what a run started, so that a later invocation can clean up after a crash.
type Manifest struct {
	RunID     string          `yaml:"runId"`
	StartedAt time.Time       `yaml:"startedAt"`
	Processes []ManifestEntry `yaml:"processes"`
}

func NewManifest(runID string, sets ...*HandleSet) *Manifest {
	manifest := &Manifest{
		RunID:     runID,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Processes: make([]ManifestEntry, 0),
	}

	for _, set := range sets {
		if set == nil {
			continue
		}

		for _, p := range set.Processes() {
			manifest.Processes = append(manifest.Processes, ManifestEntry{
				Index:   p.Spec.Index,
				Role:    p.Spec.Role,
				Pid:     p.Pid(),
				Pgid:    p.Pgid(),
				Binary:  p.Spec.Binary,
				Command: p.Command,
				LogPath: p.Spec.LogPath,
			})
		}
	}

	return manifest
}

func WriteManifest(path string, manifest *Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}

	return utils.WriteFileAtomic(path, data, 0644)
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{}
	if err := yaml.Unmarshal(data, manifest); err != nil {
		return nil, err
	}

	return manifest, nil
}

func RemoveManifest(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
