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
	"bytes"
	"chain_orchestrator/internal/topology"
	"encoding/json"
	"fmt"
	"os"
)

// Document is an opaque JSON object. Only the keys in topology.Keys are interpreted.
type Document map[string]interface{}

func decode(data []byte, out interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	return decoder.Decode(out)
}

func LoadTemplate(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &topology.InvalidInputError{Field: "template", Reason: err.Error()}
	}

	return ParseTemplate(data)
}

func ParseTemplate(data []byte) (Document, error) {
	var document Document
	if err := decode(data, &document); err != nil {
		return nil, &topology.InvalidInputError{Field: "template", Reason: fmt.Sprintf("bad json (%s)", err.Error())}
	}
	if document == nil {
		return nil, &topology.InvalidInputError{Field: "template", Reason: "not a JSON object"}
	}

	return document, nil
}

func (d Document) Clone() Document {
	data, err := json.Marshal(d)
	if err != nil {
		// Documents only ever hold values produced by the JSON decoder.
		panic(fmt.Sprintf("document is not serializable: %v", err))
	}

	var clone Document
	if err := decode(data, &clone); err != nil {
		panic(fmt.Sprintf("document cannot be decoded: %v", err))
	}

	return clone
}

// Overlay returns a copy of template with the node's fields written over it.
func Overlay(template Document, node topology.NodeConfig) (Document, error) {
	document := template.Clone()
	if document == nil {
		document = Document{}
	}

	data, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}

	var fields Document
	if err := decode(data, &fields); err != nil {
		return nil, err
	}

	for _, key := range topology.Keys {
		document[key] = fields[key]
	}

	return document, nil
}

func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

func ReadNodeConfig(path string) (topology.NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return topology.NodeConfig{}, err
	}

	node := topology.NodeConfig{}
	if err := json.Unmarshal(data, &node); err != nil {
		return topology.NodeConfig{}, fmt.Errorf("failed to parse node configuration %s: %w", path, err)
	}

	return node, nil
}
