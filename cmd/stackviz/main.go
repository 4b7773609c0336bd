// stackviz evaluates stack programs and renders them as graphs.
//
// Usage:
//
//	stackviz serve                     # HTTP/connect API and graph endpoint
//	stackviz eval 'name,cpu,:eq,:sum'  # print the final stack
//	stackviz render -o cpu.png 'name,cpu,:eq,(,node,),:by'
//	stackviz diff a.png b.png          # compare two rendered graphs
//	stackviz doctest                   # run every word example
//	stackviz repl                      # interactive evaluation
//	stackviz lsp                       # language server on stdio
//	stackviz ingest data.json          # load series into the backend
//
// The duckdb backend is only linked in when built with -tags duckdb.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackviz/manifest"
	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/graph"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("stackviz.cli")

func main() {
	if err := runCLI(os.Args, os.Stdout); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// errSilent fails the command after it has already reported why.
var errSilent = errors.New("failed")

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commands []command

func init() {
	commands = []command{
		{"serve", "serve the connect API and the graph endpoint", serveCommand},
		{"eval", "evaluate a program and print the final stack", evalCommand},
		{"words", "list the vocabulary", wordsCommand},
		{"render", "render a program to a PNG file", renderCommand},
		{"diff", "compare two PNG files", diffCommand},
		{"doctest", "run word examples", doctestCommand},
		{"repl", "interactive evaluation", replCommand},
		{"lsp", "language server on stdio", lspCommand},
		{"ingest", "load JSON series files into the backend", ingestCommand},
	}
}

func runCLI(args []string, stdout io.Writer) error {
	if len(args) < 2 {
		printUsage(os.Stderr)
		return errSilent
	}
	switch args[1] {
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	}
	for _, c := range commands {
		if c.name == args[1] {
			return c.run(args[2:], stdout)
		}
	}
	return fmt.Errorf("unknown command %q (see stackviz help)", args[1])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: stackviz <command> [options] [arguments]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun 'stackviz <command> -h' for command options.\n")
}

// globalFlags are shared by every command.
type globalFlags struct {
	config    string
	verbosity int
	logFile   string
}

func newFlagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	g := &globalFlags{}
	fs.StringVar(&g.config, "config", "", "stackviz.toml file or the directory holding it (default: search upwards)")
	fs.IntVar(&g.verbosity, "v", 0, "log verbosity: -2 errors only, 0 notices, 2 debug (default from log-level)")
	fs.StringVar(&g.logFile, "log", "", "log to this file instead of stderr")
	return fs, g
}

// load reads the configuration and configures logging from it.
func (g *globalFlags) load() (*manifest.Manifest, error) {
	m, err := g.manifest()
	if err != nil {
		return nil, err
	}

	verbosity := g.verbosity
	if verbosity == 0 {
		verbosity = verbosityFor(m.Server.LogLevel)
	}
	var path *string
	if g.logFile != "" {
		path = &g.logFile
	}
	commonlog.Configure(verbosity, path)
	if m.Dir != "" {
		log.Debugf("configuration from %s", m.Dir)
	}
	return m, nil
}

func (g *globalFlags) manifest() (*manifest.Manifest, error) {
	if g.config == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		m, err := manifest.FindAndLoad(wd)
		if err != nil || m != nil {
			return m, err
		}
		return manifest.Default(), nil
	}
	info, err := os.Stat(g.config)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if info.IsDir() {
		return manifest.Load(g.config)
	}
	return manifest.LoadFile(g.config)
}

func verbosityFor(level string) int {
	switch strings.ToLower(level) {
	case "error":
		return -2
	case "warning", "warn":
		return -1
	case "notice":
		return 0
	case "debug":
		return 2
	}
	return 1
}

func openBackend(m *manifest.Manifest) (backend.Backend, error) {
	b, err := backend.Open(m.Backend.Name, m.BackendDSN())
	if err != nil {
		return nil, err
	}
	log.Infof("backend %s %s", m.Backend.Name, m.BackendDSN())
	return b, nil
}

func graphDefaults(m *manifest.Manifest) graph.Defaults {
	return graph.Defaults{
		Width:  m.Graph.Width,
		Height: m.Graph.Height,
		Step:   m.GraphStep(),
		Span:   m.GraphRange(),
	}
}

// programArg joins the remaining arguments into one program, or reads it
// from a file when the single argument starts with @.
func programArg(fs *flag.FlagSet) (string, error) {
	args := fs.Args()
	if len(args) == 0 {
		return "", fmt.Errorf("%s: program required", fs.Name())
	}
	if len(args) == 1 && strings.HasPrefix(args[0], "@") {
		data, err := os.ReadFile(filepath.Clean(args[0][1:]))
		if err != nil {
			return "", fmt.Errorf("cannot read program: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, ","), nil
}
