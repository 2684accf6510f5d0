package graph

// The plan graph assembler. Flattens the pipeline builder's operator DAG
// into an arena: nodes keyed by stable integer ids, edges stored separately.
// Shared operators keep their identity, an operator reached through two
// sinks appears once and both paths edge into the same id.

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/pipeline"
	"github.com/rivulet-io/rivulet/types"
)

// Node is one operator of the final program. Operator and Config are only
// set on sources and sinks, they attach the runtime to the connector.
type Node struct {
	ID          int              `json:"id"`
	Kind        string           `json:"kind"`
	Description string           `json:"description"`
	Operator    string           `json:"operator,omitempty"`
	Config      string           `json:"config,omitempty"`
	Schema      *types.StructDef `json:"schema"`
	Parallelism int              `json:"parallelism"`
}

// Edge points from a producer to its consumer.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Program is the compilation result, a DAG handed to the runtime scheduler.
// Outputs lists the sink names in statement order.
type Program struct {
	ID      string   `json:"id"`
	Nodes   []Node   `json:"nodes"`
	Edges   []Edge   `json:"edges"`
	Outputs []string `json:"outputs"`
}

type assembler struct {
	nodes       []Node
	edges       []Edge
	ids         map[pipeline.SqlOperator]int
	parallelism int
}

// Assemble builds the Program out of the sink roots. At least one sink must
// be present, a query set that only defines names compiles to nothing and
// that is an error the user wants to hear about.
func Assemble(sinks []*pipeline.Sink, parallelism int) (*Program, error) {
	if len(sinks) == 0 {
		return nil, cerrors.New(
			cerrors.NoSinkDefined, "",
			"the query produces no output, add a SELECT or an INSERT INTO",
		)
	}

	a := &assembler{
		ids:         make(map[pipeline.SqlOperator]int),
		parallelism: parallelism,
	}

	outputs := []string{}
	for _, s := range sinks {
		a.visit(s)
		outputs = append(outputs, s.Name)
	}

	return &Program{
		ID:      uuid.NewString(),
		Nodes:   a.nodes,
		Edges:   a.edges,
		Outputs: outputs,
	}, nil
}

// visit assigns ids depth first, inputs before their consumer, so a node's
// producers always carry smaller ids.
func (self *assembler) visit(op pipeline.SqlOperator) int {
	if id, ok := self.ids[op]; ok {
		return id
	}

	from := []int{}
	for _, in := range op.Inputs() {
		from = append(from, self.visit(in))
	}

	id := len(self.nodes)
	self.ids[op] = id

	node := Node{
		ID:          id,
		Kind:        pipeline.OpName(op.Type()),
		Description: pipeline.Describe(op),
		Schema:      op.Schema(),
		Parallelism: self.parallelism,
	}
	switch v := op.(type) {
	case *pipeline.Source:
		node.Operator = v.Operator
		node.Config = v.Config
	case *pipeline.Sink:
		node.Operator = v.Operator
		node.Config = v.Config
	}
	self.nodes = append(self.nodes, node)

	for _, f := range from {
		self.edges = append(self.edges, Edge{From: f, To: id})
	}

	return id
}

// Dump renders the program deterministically, one node per line followed by
// the edge list. Golden tests pin this output.
func (self *Program) Dump() string {
	b := &strings.Builder{}

	for _, n := range self.Nodes {
		fmt.Fprintf(b, "%d: %s %s\n", n.ID, n.Description, n.Schema.Print())
	}
	for _, e := range self.Edges {
		fmt.Fprintf(b, "%d -> %d\n", e.From, e.To)
	}
	fmt.Fprintf(b, "outputs: %s\n", strings.Join(self.Outputs, ", "))

	return b.String()
}
