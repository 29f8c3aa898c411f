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

package trafficgen

import (
	"bytes"
	"chain_orchestrator/internal/topology"
	"chain_orchestrator/pkg/config"
	"chain_orchestrator/pkg/utils"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const expectScript = `#!/usr/bin/expect -f
spawn ssh -t {{ tclquote .Destination }} "{{ tclquote .Command }}"
{{- if .Password }}
expect "password:"
send "{{ tclquote .Password }}\r"
expect "{{ tclquote .SudoPrompt }}"
send "{{ tclquote .Password }}\r"
{{- end }}
interact
`

var tclEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, `[`, `\[`, `]`, `\]`)

// tclquote escapes a value for use inside a double quoted Tcl word, so that it is neither
// terminated early nor subject to variable or command substitution.
func tclquote(value string) string {
	return tclEscaper.Replace(value)
}

var scriptTemplate = template.Must(template.New("expect").Funcs(template.FuncMap{"tclquote": tclquote}).Parse(expectScript))

type scriptData struct {
	Destination string
	Command     string
	Password    string
	SudoPrompt  string
}

// Writer generates one login-automation script per node that starts the remote traffic generator
// against the node's external interface.
type Writer struct {
	cfg config.TrafficGeneratorConfig
}

func NewWriter(cfg config.TrafficGeneratorConfig) *Writer {
	return &Writer{cfg: cfg}
}

func (w *Writer) ScriptPath(index int) string {
	directory := w.cfg.ScriptDirectory
	if directory == "" {
		directory = "./"
	}

	return filepath.Join(directory, w.cfg.ScriptPrefix+strconv.Itoa(index)+".sh")
}

func (w *Writer) destination() string {
	if w.cfg.RemoteUser == "" {
		return w.cfg.RemoteHost
	}

	return w.cfg.RemoteUser + "@" + w.cfg.RemoteHost
}

// Command is the remote traffic generator invocation for the node. DPDK configuration files are numbered from 1.
func (w *Writer) Command(node topology.NodeConfig, flows int) string {
	return strings.Join([]string{
		utils.ElevationCommand,
		w.cfg.Binary,
		w.cfg.Script,
		"--dpdk-config=" + w.cfg.DpdkConfigHome + w.cfg.DpdkConfigPrefix + strconv.Itoa(node.Index+1) + ".lua",
		"-m", node.ExternalGate,
		"-f", strconv.Itoa(flows),
		"0",
	}, " ")
}

func (w *Writer) Render(node topology.NodeConfig, flows int) ([]byte, error) {
	data := scriptData{
		Destination: w.destination(),
		Command:     w.Command(node, flows),
		Password:    w.cfg.Password,
		SudoPrompt:  w.cfg.RemoteUser + ":",
	}

	buffer := &bytes.Buffer{}
	if err := scriptTemplate.Execute(buffer, data); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// WriteAll writes a script per node and returns their paths. On failure no script of this call remains.
func (w *Writer) WriteAll(nodes []topology.NodeConfig, flows int) ([]string, error) {
	if w.cfg.ScriptDirectory != "" {
		if err := os.MkdirAll(w.cfg.ScriptDirectory, 0755); err != nil {
			return nil, err
		}
	}

	written := make([]string, 0, len(nodes))
	for _, node := range nodes {
		content, err := w.Render(node, flows)
		if err == nil {
			err = utils.WriteFileAtomic(w.ScriptPath(node.Index), content, 0755)
		}
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to write traffic generator script for node %d: %w", node.Index, err), utils.RemoveFiles(written))
		}

		written = append(written, w.ScriptPath(node.Index))
		logrus.WithField("node", node.Index).Debugf("Traffic generator command: %s", w.Command(node, flows))
	}

	return written, nil
}
