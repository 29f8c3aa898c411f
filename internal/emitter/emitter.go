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

package emitter

import (
	"chain_orchestrator/internal/topology"
	"chain_orchestrator/pkg/utils"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type Emitter struct {
	directory string
	prefix    string
	suffix    string
}

func NewEmitter(directory, prefix, suffix string) *Emitter {
	if directory == "" {
		directory = "./"
	}

	return &Emitter{
		directory: directory,
		prefix:    prefix,
		suffix:    suffix,
	}
}

func (e *Emitter) PathFor(index int) string {
	return filepath.Join(e.directory, e.prefix+strconv.Itoa(index)+e.suffix)
}

// Emit writes one document per node. Either every document is written or, on error, none of the
// documents written by this call are left behind.
func (e *Emitter) Emit(template Document, nodes []topology.NodeConfig) ([]string, error) {
	documents := make([][]byte, 0, len(nodes))
	for _, node := range nodes {
		document, err := Overlay(template, node)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", node.Index, err)
		}

		data, err := document.Marshal()
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", node.Index, err)
		}

		documents = append(documents, data)
	}

	if err := os.MkdirAll(e.directory, 0755); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(nodes))
	for i, node := range nodes {
		path := e.PathFor(node.Index)

		if err := utils.WriteFileAtomic(path, documents[i], 0644); err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to write configuration for node %d: %w", node.Index, err), utils.RemoveFiles(written))
		}

		written = append(written, path)
		logrus.WithField("node", node.Index).Debugf("Configuration written to %s", path)
	}

	logrus.Infof("Finished generating %d configuration files", len(written))

	return written, nil
}

func (e *Emitter) Read(index int) (topology.NodeConfig, error) {
	node, err := ReadNodeConfig(e.PathFor(index))
	if err != nil {
		return topology.NodeConfig{}, err
	}

	node.Index = index

	return node, nil
}
