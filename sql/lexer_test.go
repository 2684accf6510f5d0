package sql

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestLexComment(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer(`
-- last line
-- another line
`)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`
-- abc
    id -- def
-- xyz
`)
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "id")
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`
-- abc
/* abcd */    id -- def
`)
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "id")
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`/* not closed`)
		assert.True(l.Next() == TkError)
	}
}

func TestLexOp(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("+ - * / % . ( ) , ;")
		assert.True(l.Next() == TkAdd)
		assert.True(l.Next() == TkSub)
		assert.True(l.Next() == TkMul)
		assert.True(l.Next() == TkDiv)
		assert.True(l.Next() == TkMod)
		assert.True(l.Next() == TkDot)
		assert.True(l.Next() == TkLPar)
		assert.True(l.Next() == TkRPar)
		assert.True(l.Next() == TkComma)
		assert.True(l.Next() == TkSemicolon)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("< <= > >= = == != <>")
		assert.True(l.Next() == TkLt)
		assert.True(l.Next() == TkLe)
		assert.True(l.Next() == TkGt)
		assert.True(l.Next() == TkGe)
		assert.True(l.Next() == TkEq)
		assert.True(l.Next() == TkEq)
		assert.True(l.Next() == TkNe)
		assert.True(l.Next() == TkNe)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("!")
		assert.True(l.Next() == TkError)
	}
}

func TestLexKeyword(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("select FROM Where GROUP BY order   by limit")
		assert.True(l.Next() == TkSelect)
		assert.True(l.Next() == TkFrom)
		assert.True(l.Next() == TkWhere)
		assert.True(l.Next() == TkGroupBy)
		assert.True(l.Next() == TkOrderBy)
		assert.True(l.Next() == TkLimit)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("create view table insert into with")
		assert.True(l.Next() == TkCreate)
		assert.True(l.Next() == TkView)
		assert.True(l.Next() == TkTable)
		assert.True(l.Next() == TkInsert)
		assert.True(l.Next() == TkInto)
		assert.True(l.Next() == TkWith)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("join inner left right full outer cross on")
		assert.True(l.Next() == TkJoin)
		assert.True(l.Next() == TkInner)
		assert.True(l.Next() == TkLeft)
		assert.True(l.Next() == TkRight)
		assert.True(l.Next() == TkFull)
		assert.True(l.Next() == TkOuter)
		assert.True(l.Next() == TkCross)
		assert.True(l.Next() == TkOn)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("and or not in between interval cast as")
		assert.True(l.Next() == TkAnd)
		assert.True(l.Next() == TkOr)
		assert.True(l.Next() == TkNot)
		assert.True(l.Next() == TkIn)
		assert.True(l.Next() == TkBetween)
		assert.True(l.Next() == TkInterval)
		assert.True(l.Next() == TkCast)
		assert.True(l.Next() == TkAs)
		assert.True(l.Next() == TkEof)
	}

	{
		// keyword prefix must not swallow a longer identifier
		l := newLexer("selected ontime interval_ms")
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "selected")
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "ontime")
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "interval_ms")
		assert.True(l.Next() == TkEof)
	}
}

func TestLexId(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("Orders")
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "orders")
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("t1.Amount")
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "t1")
		assert.True(l.Next() == TkDot)
		assert.True(l.Next() == TkId)
		assert.True(l.Lexeme.Text == "amount")
		assert.True(l.Next() == TkEof)
	}
}

func TestLexConst(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("100 1.5 2e3 true FALSE null")
		assert.True(l.Next() == TkInt)
		assert.True(l.Lexeme.Int == int64(100))
		assert.True(l.Next() == TkReal)
		assert.True(l.Lexeme.Real == 1.5)
		assert.True(l.Next() == TkReal)
		assert.True(l.Lexeme.Real == 2000.0)
		assert.True(l.Next() == TkTrue)
		assert.True(l.Next() == TkFalse)
		assert.True(l.Next() == TkNull)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`'hello' "world" 'a\nb'`)
		assert.True(l.Next() == TkStr)
		assert.True(l.Lexeme.Text == "hello")
		assert.True(l.Next() == TkStr)
		assert.True(l.Lexeme.Text == "world")
		assert.True(l.Next() == TkStr)
		assert.True(l.Lexeme.Text == "a\nb")
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer("'not closed")
		assert.True(l.Next() == TkError)
	}
}
