package types

import (
	"fmt"
	"strings"
)

// StructField is one column of a record schema. Alias, when set, records the
// source name a projection renamed, which downstream code generation needs
// to map back onto the wire format.
type StructField struct {
	Name  string
	Alias string
	Type  TypeDef
}

func NewStructField(name string, alias string, td TypeDef) StructField {
	return StructField{
		Name:  name,
		Alias: alias,
		Type:  td,
	}
}

func (self *StructField) Print() string {
	return fmt.Sprintf("%s %s", self.Name, self.Type.Print())
}

// StructDef is an ordered column list. Order is significant: it defines the
// column position used by expression binding and code generation.
type StructDef struct {
	Name   string // optional declared record type name
	Fields []StructField
}

func NewStructDef(name string, fields []StructField) *StructDef {
	return &StructDef{
		Name:   name,
		Fields: fields,
	}
}

// FieldIndex returns the position of the named column, or -1.
func (self *StructDef) FieldIndex(name string) int {
	for idx, f := range self.Fields {
		if f.Name == name {
			return idx
		}
	}
	return -1
}

func (self *StructDef) Print() string {
	buf := strings.Builder{}
	buf.WriteString("[")
	for idx, f := range self.Fields {
		if idx > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(f.Print())
	}
	buf.WriteString("]")
	return buf.String()
}

// WindowStruct is the return schema of the window constructor functions,
// a pair of timestamps bounding the bucket.
func WindowStruct() *StructDef {
	return &StructDef{
		Name: "window",
		Fields: []StructField{
			NewStructField("window_start", "", Data(KindTimestamp, false)),
			NewStructField("window_end", "", Data(KindTimestamp, false)),
		},
	}
}
