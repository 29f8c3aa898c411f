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

package topology

import (
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError is raised before any side effect takes place.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

type InvalidServerCountError struct {
	NumServers int
	Max        int
}

func (e *InvalidServerCountError) Error() string {
	return fmt.Sprintf("invalid number of servers %d: must be in [1, %d]", e.NumServers, e.Max)
}

func (e *InvalidServerCountError) Is(target error) bool {
	return target == ErrInvalidInput
}

// OutOfRangeError means the requested slot or index does not fit the configured address space.
type OutOfRangeError struct {
	Kind  string
	Value int
	Limit int
}

func (e *OutOfRangeError) Error() string {
	if e.Limit < 0 {
		return fmt.Sprintf("%s %d must not be negative", e.Kind, e.Value)
	}

	return fmt.Sprintf("%s %d out of range [0, %d)", e.Kind, e.Value, e.Limit)
}
