package plan

import (
	"path"
	"strings"
)

// Kind is the type of a generated artifact.
type Kind string

const (
	KindMessageModule Kind = "message_module"
	KindGRPCModule    Kind = "grpc_module"
	KindMessageStub   Kind = "message_stub"
	KindGRPCStub      Kind = "grpc_stub"
)

// Kinds lists every artifact kind in emission order.
var Kinds = []Kind{KindMessageModule, KindGRPCModule, KindMessageStub, KindGRPCStub}

// moduleSuffix is appended to the proto stem to form the module name.
func (k Kind) moduleSuffix() string {
	switch k {
	case KindGRPCModule, KindGRPCStub:
		return "_pb2_grpc"
	default:
		return "_pb2"
	}
}

// Ext is the file extension of the artifact.
func (k Kind) Ext() string {
	if k.IsStub() {
		return ".pyi"
	}
	return ".py"
}

// IsStub reports whether the kind is a type stub.
func (k Kind) IsStub() bool {
	return k == KindMessageStub || k == KindGRPCStub
}

// ModulePath is a Python module path relative to an output root: package
// segments followed by the module name.
type ModulePath []string

// ParseModulePath splits a dotted module name.
func ParseModulePath(dotted string) ModulePath {
	if dotted == "" {
		return nil
	}
	return ModulePath(strings.Split(dotted, "."))
}

// String returns the dotted form, e.g. "payment.types_pb2".
func (m ModulePath) String() string { return strings.Join(m, ".") }

// Leaf is the module name without packages.
func (m ModulePath) Leaf() string {
	if len(m) == 0 {
		return ""
	}
	return m[len(m)-1]
}

// Package is the containing package segments.
func (m ModulePath) Package() []string {
	if len(m) == 0 {
		return nil
	}
	return m[:len(m)-1]
}

// Dir is the slash-separated package directory relative to the output root.
func (m ModulePath) Dir() string {
	return path.Join(m.Package()...)
}

// File is the slash-separated file path of the module with the given extension.
func (m ModulePath) File(ext string) string {
	return path.Join(m...) + ext
}

// ModulePathFor derives the module generated from a proto file, following
// protoc's Python naming: strip ".proto", "-" becomes "_", and both "/" and "."
// separate packages.
func ModulePathFor(protoRel string, kind Kind) ModulePath {
	stem := strings.TrimSuffix(protoRel, ".proto")
	stem = strings.ReplaceAll(stem, "-", "_")
	segs := strings.FieldsFunc(stem, func(r rune) bool { return r == '/' || r == '.' })
	if len(segs) == 0 {
		return nil
	}
	out := make(ModulePath, len(segs))
	copy(out, segs)
	out[len(out)-1] += kind.moduleSuffix()
	return out
}

// Alias is the name protoc binds an imported module to: "_" doubles and "."
// becomes "_dot_", e.g. payment.types_pb2 -> payment_dot_types__pb2.
func (m ModulePath) Alias() string {
	s := strings.ReplaceAll(m.String(), "_", "__")
	return strings.ReplaceAll(s, ".", "_dot_")
}
