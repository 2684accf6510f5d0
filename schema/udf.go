package schema

// User defined functions. A UDF arrives as the source text of a single Go
// function; its signature is parsed to derive the argument and return types
// the expression compiler checks against, and the source is kept verbatim
// for the code generation stage.

import (
	goast "go/ast"
	goparser "go/parser"
	gotoken "go/token"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/types"
)

type UdfDef struct {
	Args []types.TypeDef
	Ret  types.TypeDef
	Def  string
}

func parseUdfDecl(body string) (*goast.FuncDecl, error) {
	fset := gotoken.NewFileSet()

	file, err := goparser.ParseFile(fset, "udf.go", "package udf\n\n"+body, 0)
	if err != nil {
		return nil, cerrors.New(
			cerrors.SyntaxError, "", "cannot parse function definition: %s", err,
		)
	}

	for _, decl := range file.Decls {
		if fn, ok := decl.(*goast.FuncDecl); ok {
			return fn, nil
		}
	}

	return nil, cerrors.New(
		cerrors.SyntaxError, "", "no function declaration found in UDF definition",
	)
}

// RegisterUdf parses the function source, validates the signature and makes
// it callable from SQL under its declared name. The name is returned.
func (self *Provider) RegisterUdf(body string) (string, error) {
	fn, err := parseUdfDecl(body)
	if err != nil {
		return "", err
	}

	name := fn.Name.Name

	if fn.Recv != nil {
		return "", cerrors.New(
			cerrors.InvalidSelfParameter, name,
			"function %s must not have a receiver", name,
		)
	}

	if fn.Type.Results == nil || len(fn.Type.Results.List) == 0 {
		return "", cerrors.New(
			cerrors.MissingReturnType, name,
			"function %s must declare a return type", name,
		)
	}
	if len(fn.Type.Results.List) > 1 || len(fn.Type.Results.List[0].Names) > 0 {
		return "", cerrors.New(
			cerrors.UnsupportedType, name,
			"function %s must declare exactly one unnamed return value", name,
		)
	}

	ret, ok := types.FromGoExpr(fn.Type.Results.List[0].Type)
	if !ok {
		return "", cerrors.New(
			cerrors.UnsupportedType, name,
			"function %s returns a type not usable from SQL", name,
		)
	}

	args := []types.TypeDef{}
	for _, param := range fn.Type.Params.List {
		td, ok := types.FromGoExpr(param.Type)
		if !ok {
			return "", cerrors.New(
				cerrors.UnsupportedType, name,
				"function %s has a parameter type not usable from SQL", name,
			)
		}

		// func f(a, b int64) declares 2 parameters of the same type
		n := len(param.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			args = append(args, td)
		}
	}

	if self.functions[name] != nil || self.aggregates[name] {
		return "", cerrors.New(
			cerrors.NameCollision, name,
			"function %s is already defined", name,
		)
	}

	self.functions[name] = &FunctionDef{
		Name: name,
		Args: args,
		Ret:  ret,
		Udf:  true,
		Body: body,
	}

	return name, nil
}

// Udf returns the stored definition of a registered UDF.
func (self *Provider) Udf(name string) (*UdfDef, bool) {
	fn := self.functions[name]
	if fn == nil || !fn.Udf {
		return nil, false
	}
	return &UdfDef{
		Args: fn.Args,
		Ret:  fn.Ret,
		Def:  fn.Body,
	}, true
}
