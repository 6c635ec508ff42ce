// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/samber/oops"
)

// passwordPrompt reads passwords without echo from a terminal, or one per
// line from piped input.
type passwordPrompt struct {
	in           io.Reader
	out          io.Writer
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
	lines        *bufio.Scanner
}

func newPasswordPrompt(in io.Reader, out io.Writer, deps *Deps) *passwordPrompt {
	return &passwordPrompt{
		in:           in,
		out:          out,
		isTerminal:   deps.IsTerminal,
		readPassword: deps.ReadPassword,
	}
}

func (p *passwordPrompt) read(prompt string) (string, error) {
	if f, ok := p.in.(*os.File); ok && p.isTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		pw, err := p.readPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return string(pw), nil
	}

	if p.lines == nil {
		p.lines = bufio.NewScanner(p.in)
	}
	if !p.lines.Scan() {
		if err := p.lines.Err(); err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return "", oops.Code("PASSWORD_READ_FAILED").Errorf("no password on standard input")
	}
	return p.lines.Text(), nil
}
