package schema

import (
	"fmt"

	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/types"
)

// Table is anything the catalog can resolve a FROM clause against. Besides
// connector tables this covers the query derived tables the planner
// registers, ie views and CREATE TABLE AS results.
type Table interface {
	TableName() string
	Schema() *types.StructDef
}

// ConnectorTable is a table backed by an external system. Operator and
// Config are the resolved runtime attachment, produced by the connector
// glue out of the user's options.
type ConnectorTable struct {
	Name           string
	Type           int // connector.ConnectionSource or ConnectionSink
	Connector      string
	Operator       string
	Config         string
	Description    string
	Def            *types.StructDef
	EventTimeField string
	WatermarkField string
}

func (self *ConnectorTable) TableName() string { return self.Name }
func (self *ConnectorTable) Schema() *types.StructDef { return self.Def }

func (self *ConnectorTable) IsSource() bool {
	return self.Type == connector.ConnectionSource
}

func (self *ConnectorTable) Dump() string {
	return fmt.Sprintf(
		"%s %s(%s) %s",
		self.Name,
		connector.ConnectionTypeName(self.Type),
		self.Connector,
		self.Def.Print(),
	)
}
