package types

import (
	"fmt"
	goast "go/ast"
	"strings"
)

// The type model shared by every compilation stage. A TypeDef is either a
// primitive data type or a reference to a StructDef, and always carries its
// own nullability. Nullability is tracked independently from the underlying
// kind and must survive every expression and struct composition.

const (
	KindInvalid = iota
	KindNull
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindTimestamp
	KindBytes
	KindInterval
	KindStruct
)

type TypeDef struct {
	Kind     int
	Nullable bool
	Struct   *StructDef // valid iff Kind == KindStruct
}

func Data(kind int, nullable bool) TypeDef {
	return TypeDef{
		Kind:     kind,
		Nullable: nullable,
	}
}

func Struct(def *StructDef, nullable bool) TypeDef {
	return TypeDef{
		Kind:     KindStruct,
		Nullable: nullable,
		Struct:   def,
	}
}

func (self *TypeDef) IsNumeric() bool {
	switch self.Kind {
	case KindInt32, KindInt64, KindFloat32, KindFloat64:
		return true
	default:
		return false
	}
}

func (self *TypeDef) IsIntegral() bool {
	return self.Kind == KindInt32 || self.Kind == KindInt64
}

func (self *TypeDef) IsFloat() bool {
	return self.Kind == KindFloat32 || self.Kind == KindFloat64
}

func (self *TypeDef) IsNull() bool { return self.Kind == KindNull }

// AsNullable returns the same type with the nullable flag forced on, used
// when an expression result absorbs nullability from one of its operands.
func (self TypeDef) AsNullable() TypeDef {
	self.Nullable = true
	return self
}

func kindName(kind int) string {
	switch kind {
	case KindNull:
		return "null"
	case KindInt32:
		return "i32"
	case KindInt64:
		return "i64"
	case KindFloat32:
		return "f32"
	case KindFloat64:
		return "f64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindBytes:
		return "bytes"
	case KindInterval:
		return "interval"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

func (self *TypeDef) Print() string {
	n := kindName(self.Kind)
	if self.Kind == KindStruct && self.Struct != nil && self.Struct.Name != "" {
		n = fmt.Sprintf("struct<%s>", self.Struct.Name)
	}
	if self.Nullable {
		return n + "?"
	}
	return n
}

// FromSQLName maps a SQL type name, as written in CAST or in a catalog file,
// into a TypeDef. The boolean reports whether the name is known.
func FromSQLName(name string) (TypeDef, bool) {
	switch strings.ToLower(name) {
	case "int", "integer", "int32":
		return Data(KindInt32, false), true
	case "bigint", "int64":
		return Data(KindInt64, false), true
	case "float", "real", "float32":
		return Data(KindFloat32, false), true
	case "double", "float64":
		return Data(KindFloat64, false), true
	case "bool", "boolean":
		return Data(KindBool, false), true
	case "string", "text", "varchar":
		return Data(KindString, false), true
	case "timestamp":
		return Data(KindTimestamp, false), true
	case "bytes", "bytea", "binary":
		return Data(KindBytes, false), true
	default:
		return TypeDef{}, false
	}
}

// FromGoExpr maps a Go type expression, as it appears in a UDF signature,
// into a TypeDef. Pointer types become nullable versions of their element
// type. The boolean reports whether the mapping is supported.
func FromGoExpr(expr goast.Expr) (TypeDef, bool) {
	switch t := expr.(type) {
	case *goast.Ident:
		switch t.Name {
		case "int32":
			return Data(KindInt32, false), true
		case "int", "int64":
			return Data(KindInt64, false), true
		case "float32":
			return Data(KindFloat32, false), true
		case "float64":
			return Data(KindFloat64, false), true
		case "bool":
			return Data(KindBool, false), true
		case "string":
			return Data(KindString, false), true
		default:
			return TypeDef{}, false
		}

	case *goast.SelectorExpr:
		if pkg, ok := t.X.(*goast.Ident); ok && pkg.Name == "time" && t.Sel.Name == "Time" {
			return Data(KindTimestamp, false), true
		}
		return TypeDef{}, false

	case *goast.ArrayType:
		if t.Len != nil {
			return TypeDef{}, false
		}
		if elem, ok := t.Elt.(*goast.Ident); ok && elem.Name == "byte" {
			return Data(KindBytes, false), true
		}
		return TypeDef{}, false

	case *goast.StarExpr:
		td, ok := FromGoExpr(t.X)
		if !ok {
			return TypeDef{}, false
		}
		return td.AsNullable(), true

	default:
		return TypeDef{}, false
	}
}
