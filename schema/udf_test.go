package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/types"
)

func TestRegisterUdf(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	name, err := p.RegisterUdf(`
func double_it(x int64) int64 {
	return x * 2
}`)
	assert.NoError(err)
	assert.Equal("double_it", name)

	fn := p.Function("double_it")
	assert.NotNil(fn)
	assert.True(fn.Udf)
	assert.Equal(1, len(fn.Args))
	assert.Equal(types.KindInt64, fn.Args[0].Kind)
	assert.Equal(types.KindInt64, fn.Ret.Kind)

	def, ok := p.Udf("double_it")
	assert.True(ok)
	assert.Contains(def.Def, "x * 2")

	// builtins are not UDFs
	_, ok = p.Udf("tumble")
	assert.False(ok)
}

func TestRegisterUdfSignatures(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	{
		// pointer parameter maps to a nullable argument
		_, err := p.RegisterUdf(`
func maybe_len(s *string) int64 {
	if s == nil {
		return 0
	}
	return int64(len(*s))
}`)
		assert.NoError(err)
		fn := p.Function("maybe_len")
		assert.True(fn.Args[0].Nullable)
	}

	{
		// grouped parameters of a shared type
		_, err := p.RegisterUdf(`
func add3(a, b, c float64) float64 {
	return a + b + c
}`)
		assert.NoError(err)
		assert.Equal(3, len(p.Function("add3").Args))
	}
}

func TestRegisterUdfErrors(t *testing.T) {
	assert := assert.New(t)
	p := NewProvider()

	{
		// receiver is not allowed
		_, err := p.RegisterUdf(`
func (self *Provider) bad(x int64) int64 { return x }`)
		assert.True(cerrors.IsKind(err, cerrors.InvalidSelfParameter))
	}

	{
		// missing return type
		_, err := p.RegisterUdf(`
func no_ret(x int64) {}`)
		assert.True(cerrors.IsKind(err, cerrors.MissingReturnType))
	}

	{
		// multiple return values
		_, err := p.RegisterUdf(`
func two_ret(x int64) (int64, error) { return x, nil }`)
		assert.True(cerrors.IsKind(err, cerrors.UnsupportedType))
	}

	{
		// unmappable parameter type
		_, err := p.RegisterUdf(`
func bad_arg(x map[string]string) int64 { return 0 }`)
		assert.True(cerrors.IsKind(err, cerrors.UnsupportedType))
	}

	{
		// collision with a builtin aggregate
		_, err := p.RegisterUdf(`
func count(x int64) int64 { return x }`)
		assert.True(cerrors.IsKind(err, cerrors.NameCollision))
	}

	{
		// collision with an already registered UDF
		_, err := p.RegisterUdf(`
func mine(x int64) int64 { return x }`)
		assert.NoError(err)
		_, err = p.RegisterUdf(`
func mine(x int64) int64 { return x + 1 }`)
		assert.True(cerrors.IsKind(err, cerrors.NameCollision))
	}

	{
		// not parseable at all
		_, err := p.RegisterUdf(`func broken(`)
		assert.True(cerrors.IsKind(err, cerrors.SyntaxError))
	}
}
