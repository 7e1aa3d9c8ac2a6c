package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/generator"
)

// DoctorCmd implements the 'doctor' command.
type DoctorCmd struct {
	Python  string        `help:"Interpreter to probe for grpc_tools (defaults to the configured python_exe)"`
	Timeout time.Duration `help:"Timeout for the grpc_tools probe" default:"20s"`
}

type toolStatus struct {
	Name string
	Path string
	Err  error
}

// doctorTools are looked up on PATH; only a generator is required.
var doctorTools = []string{"python3", "protoc", "buf", "mypy", "pyright"}

func (d *DoctorCmd) Run(g *Global, root *CLI) error {
	python := d.python(root)
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	statuses := lookupTools(doctorTools)
	grpcErr := generator.CheckAvailable(ctx, python)

	w := g.out()
	for _, s := range statuses {
		if s.Err != nil {
			_, _ = fmt.Fprintf(w, "  missing  %-8s\n", s.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "  ok       %-8s %s\n", s.Name, s.Path)
	}
	if grpcErr != nil {
		_, _ = fmt.Fprintf(w, "  missing  grpc_tools (%s)\n", python)
	} else {
		_, _ = fmt.Fprintf(w, "  ok       grpc_tools (%s)\n", python)
	}

	if grpcErr != nil && !found(statuses, "protoc") {
		return errors.WrapError(grpcErr, errors.CategoryInvocation, "no protobuf generator available").
			WithContext("python_exe", python).Build()
	}
	if grpcErr != nil {
		_, _ = fmt.Fprintln(w, "protoc is installed, but builds run grpc_tools.protoc; install grpcio-tools")
	}
	return nil
}

// python picks the interpreter: flag, then configuration if it loads, then python3.
func (d *DoctorCmd) python(root *CLI) string {
	if d.Python != "" {
		return d.Python
	}
	if _, err := os.Stat(root.Config); err == nil {
		if cfg, err := config.Load(root.Config); err == nil {
			return cfg.PythonExe
		}
	}
	return "python3"
}

func lookupTools(names []string) []toolStatus {
	out := make([]toolStatus, 0, len(names))
	for _, n := range names {
		p, err := exec.LookPath(n)
		out = append(out, toolStatus{Name: n, Path: p, Err: err})
	}
	return out
}

func found(statuses []toolStatus, name string) bool {
	for _, s := range statuses {
		if strings.EqualFold(s.Name, name) && s.Err == nil {
			return true
		}
	}
	return false
}
