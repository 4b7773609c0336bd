package main

import (
	"io"

	"github.com/chazu/stackviz/server"
)

func lspCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("lsp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// stdout carries the protocol; logs must go to stderr or a file.
	m, err := g.load()
	if err != nil {
		return err
	}
	in, err := m.NewInterpreter()
	if err != nil {
		return err
	}
	return server.NewLSP(in).Run()
}
