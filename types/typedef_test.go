package types

import (
	goparser "go/parser"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromSQLName(t *testing.T) {
	assert := assert.New(t)

	one := func(name string, kind int) {
		td, ok := FromSQLName(name)
		assert.True(ok, name)
		assert.Equal(kind, td.Kind, name)
		assert.False(td.Nullable, name)
	}

	one("bigint", KindInt64)
	one("BIGINT", KindInt64)
	one("int", KindInt32)
	one("double", KindFloat64)
	one("varchar", KindString)
	one("timestamp", KindTimestamp)

	_, ok := FromSQLName("decimal")
	assert.False(ok)
}

func TestFromGoExpr(t *testing.T) {
	assert := assert.New(t)

	one := func(src string, kind int, nullable bool) {
		e, err := goparser.ParseExpr(src)
		assert.NoError(err, src)
		td, ok := FromGoExpr(e)
		assert.True(ok, src)
		assert.Equal(kind, td.Kind, src)
		assert.Equal(nullable, td.Nullable, src)
	}

	one("int64", KindInt64, false)
	one("string", KindString, false)
	one("*string", KindString, true)
	one("*float64", KindFloat64, true)
	one("time.Time", KindTimestamp, false)
	one("[]byte", KindBytes, false)

	bad := func(src string) {
		e, err := goparser.ParseExpr(src)
		assert.NoError(err, src)
		_, ok := FromGoExpr(e)
		assert.False(ok, src)
	}

	bad("map[string]string")
	bad("[4]byte")
	bad("*error")
}

func TestTypePrint(t *testing.T) {
	assert := assert.New(t)

	td := Data(KindInt64, false)
	assert.Equal("i64", td.Print())

	n := td.AsNullable()
	assert.Equal("i64?", n.Print())
	assert.False(td.Nullable)

	def := NewStructDef("point", []StructField{
		NewStructField("x", "", Data(KindFloat64, false)),
		NewStructField("y", "", Data(KindFloat64, true)),
	})
	assert.Equal("[x f64, y f64?]", def.Print())
	assert.Equal(1, def.FieldIndex("y"))
	assert.Equal(-1, def.FieldIndex("z"))
}
