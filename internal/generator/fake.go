package generator

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// Fake is an in-process Invoker that writes protoc-shaped output: absolute
// imports in the styles grpc_tools and mypy-protobuf emit. It reads each proto
// only for its import statements and service declarations.
type Fake struct {
	// FailWith makes every call fail with this text on stderr.
	FailWith string
	// Omit lists output paths (slash separated, relative to OutputDir) that are not written.
	Omit map[string]bool

	mu    sync.Mutex
	calls []Request
}

// NewFake returns a Fake that succeeds.
func NewFake() *Fake {
	return &Fake{Omit: map[string]bool{}}
}

// Calls returns the requests seen so far.
func (f *Fake) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) Invoke(ctx context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if f.FailWith != "" {
		return Result{Success: false, Stderr: f.FailWith},
			errors.WrapError(stderrors.New(f.FailWith), errors.CategoryInvocation, "grpc_tools.protoc failed").
				WithContext("proto_root", req.ProtoPath).Build()
	}

	for _, file := range req.Files {
		data, err := os.ReadFile(filepath.Join(req.ProtoPath, filepath.FromSlash(file)))
		if err != nil {
			msg := fmt.Sprintf("%s: File not found.", file)
			return Result{Success: false, Stderr: msg},
				errors.WrapError(stderrors.New(msg), errors.CategoryInvocation, "grpc_tools.protoc failed").Build()
		}
		src := parseProto(string(data))
		outputs := map[plan.Kind]string{plan.KindMessageModule: messageModule(file, src)}
		if req.Flags.EmitGRPC {
			outputs[plan.KindGRPCModule] = grpcModule(file, src)
		}
		if req.Flags.EmitTypeStubs {
			outputs[plan.KindMessageStub] = messageStub(src)
		}
		if req.Flags.EmitGRPC && req.Flags.EmitGRPCTypeStubs {
			outputs[plan.KindGRPCStub] = grpcStub(file, src)
		}
		for kind, body := range outputs {
			rel := plan.ModulePathFor(file, kind).File(kind.Ext())
			if f.Omit[rel] {
				continue
			}
			dst := filepath.Join(req.OutputDir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return Result{}, errors.WrapError(err, errors.CategoryInvocation, "write generated file").Build()
			}
			if err := os.WriteFile(dst, []byte(body), 0o644); err != nil {
				return Result{}, errors.WrapError(err, errors.CategoryInvocation, "write generated file").Build()
			}
		}
	}
	return Result{Success: true}, nil
}

var (
	protoImportRe  = regexp.MustCompile(`(?m)^\s*import\s+(?:public\s+|weak\s+)?"([^"]+)"\s*;`)
	protoServiceRe = regexp.MustCompile(`(?m)^\s*service\s+\w+`)
)

type protoSource struct {
	imports    []string
	hasService bool
}

func parseProto(text string) protoSource {
	var src protoSource
	for _, m := range protoImportRe.FindAllStringSubmatch(text, -1) {
		src.imports = append(src.imports, m[1])
	}
	src.hasService = protoServiceRe.MatchString(text)
	return src
}

// pyImport renders an import the way the protobuf Python generator does.
func pyImport(protoFile string) string {
	m := plan.ModulePathFor(protoFile, plan.KindMessageModule)
	if len(m.Package()) == 0 {
		return fmt.Sprintf("import %s as %s\n", m.Leaf(), m.Alias())
	}
	return fmt.Sprintf("from %s import %s as %s\n", strings.Join(m.Package(), "."), m.Leaf(), m.Alias())
}

func messageModule(file string, src protoSource) string {
	var b strings.Builder
	b.WriteString("# -*- coding: utf-8 -*-\n")
	b.WriteString("# Generated by the protocol buffer compiler.  DO NOT EDIT!\n")
	fmt.Fprintf(&b, "# source: %s\n", file)
	b.WriteString("\"\"\"Generated protocol buffer code.\"\"\"\n")
	b.WriteString("from google.protobuf import descriptor as _descriptor\n")
	b.WriteString("from google.protobuf import symbol_database as _symbol_database\n")
	b.WriteString("# @@protoc_insertion_point(imports)\n\n")
	b.WriteString("_sym_db = _symbol_database.Default()\n\n\n")
	for _, dep := range src.imports {
		b.WriteString(pyImport(dep))
	}
	fmt.Fprintf(&b, "\nDESCRIPTOR = _descriptor.FileDescriptor(name=%q)\n", file)
	return b.String()
}

func grpcModule(file string, src protoSource) string {
	var b strings.Builder
	b.WriteString("# Generated by the gRPC Python protocol compiler plugin. DO NOT EDIT!\n")
	b.WriteString("\"\"\"Client and server classes corresponding to protobuf-defined services.\"\"\"\n")
	b.WriteString("import grpc\n")
	b.WriteString("import warnings\n\n")
	if src.hasService {
		for _, dep := range src.imports {
			b.WriteString(pyImport(dep))
		}
		b.WriteString(pyImport(file))
	}
	return b.String()
}

func messageStub(src protoSource) string {
	var b strings.Builder
	b.WriteString("\"\"\"\n@generated by mypy-protobuf.  Do not edit manually!\nisort:skip_file\n\"\"\"\n\n")
	b.WriteString("import builtins\n")
	b.WriteString("import google.protobuf.descriptor\n")
	b.WriteString("import google.protobuf.message\n")
	deps := make([]string, 0, len(src.imports))
	for _, dep := range src.imports {
		dotted := plan.ModulePathFor(dep, plan.KindMessageModule).String()
		deps = append(deps, dotted)
		fmt.Fprintf(&b, "import %s\n", dotted)
	}
	b.WriteString("import typing\n\n")
	b.WriteString("DESCRIPTOR: google.protobuf.descriptor.FileDescriptor\n\n")
	b.WriteString("@typing.final\nclass Message(google.protobuf.message.Message):\n")
	b.WriteString("    DESCRIPTOR: google.protobuf.descriptor.Descriptor\n")
	for i, dotted := range deps {
		fmt.Fprintf(&b, "    field_%d: %s.DESCRIPTOR.__class__\n", i, dotted)
	}
	return b.String()
}

func grpcStub(file string, src protoSource) string {
	var b strings.Builder
	b.WriteString("\"\"\"\n@generated by mypy-protobuf.  Do not edit manually!\nisort:skip_file\n\"\"\"\n\n")
	b.WriteString("import abc\n")
	b.WriteString("import grpc\n")
	if src.hasService {
		self := plan.ModulePathFor(file, plan.KindMessageModule).String()
		fmt.Fprintf(&b, "import %s\n\n", self)
		fmt.Fprintf(&b, "class ServiceStub:\n    def __init__(self, channel: grpc.Channel) -> None: ...\n    descriptor: %s.DESCRIPTOR.__class__\n", self)
	}
	return b.String()
}
