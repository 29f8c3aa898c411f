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

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Operator is asked for confirmation at every checkpoint. An error aborts the run.
type Operator interface {
	Confirm(ctx context.Context, checkpoint Checkpoint) error
}

type line struct {
	text string
	err  error
}

// ConsoleOperator prompts on out and waits for a line on in.
type ConsoleOperator struct {
	in     *bufio.Reader
	out    io.Writer
	prompt *color.Color
	hint   *color.Color

	once  sync.Once
	lines chan line
}

func NewConsoleOperator(in io.Reader, out io.Writer) *ConsoleOperator {
	return &ConsoleOperator{
		in:     bufio.NewReader(in),
		out:    out,
		prompt: color.New(color.FgYellow, color.Bold),
		hint:   color.New(color.Faint),
		lines:  make(chan line),
	}
}

// a single reader goroutine, so that a cancelled Confirm does not swallow the next answer
func (o *ConsoleOperator) read() {
	for {
		text, err := o.in.ReadString('\n')

		o.lines <- line{text: text, err: err}
		if err != nil {
			return
		}
	}
}

func (o *ConsoleOperator) Confirm(ctx context.Context, checkpoint Checkpoint) error {
	o.once.Do(func() {
		go o.read()
	})

	_, _ = o.prompt.Fprintln(o.out, checkpoint.Prompt())
	_, _ = o.hint.Fprintln(o.out, "Press Enter to continue, Ctrl+C to abort")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case answer, ok := <-o.lines:
		if !ok {
			return io.EOF
		}
		if answer.err != nil {
			close(o.lines)
			return fmt.Errorf("no confirmation for %s checkpoint: %w", checkpoint, answer.err)
		}

		return nil
	}
}
