package compile

// The top level entry point. One call takes the SQL text and a populated
// catalog through parse, statement processing, lowering and assembly. The
// whole pipeline is synchronous and single threaded, the caller owns catalog
// isolation: one Provider per compilation.

import (
	"strings"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/graph"
	"github.com/rivulet-io/rivulet/pipeline"
	"github.com/rivulet-io/rivulet/plan"
	"github.com/rivulet-io/rivulet/schema"
	"github.com/rivulet-io/rivulet/sql"
)

type Config struct {
	DefaultParallelism int
}

func DefaultConfig() Config {
	return Config{
		DefaultParallelism: 4,
	}
}

// ParseAndGetProgram compiles the query against the provider's catalog and
// returns the program plus the sink names, in statement order.
func ParseAndGetProgram(
	query string,
	provider *schema.Provider,
	config Config,
) (*graph.Program, []string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, cerrors.New(
			cerrors.EmptyQuery, "", "the query is empty",
		)
	}

	stmts, err := sql.NewParser(query).Parse()
	if err != nil {
		return nil, nil, err
	}
	if len(stmts) == 0 {
		return nil, nil, cerrors.New(
			cerrors.EmptyQuery, "", "the query holds no statement",
		)
	}

	outputs, err := plan.NewPlanner(provider).ProcessStatements(stmts)
	if err != nil {
		return nil, nil, err
	}

	builder := pipeline.NewBuilder(provider)
	for _, t := range outputs {
		if err := builder.AddTable(t); err != nil {
			return nil, nil, err
		}
	}

	parallelism := config.DefaultParallelism
	if parallelism <= 0 {
		parallelism = DefaultConfig().DefaultParallelism
	}

	program, err := graph.Assemble(builder.Outputs(), parallelism)
	if err != nil {
		return nil, nil, err
	}

	return program, program.Outputs, nil
}
