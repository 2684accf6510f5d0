package sql

// parser of the sql dialect, tailered for our own usage. We briefly describe
// the grammar as following EBNF
//
// ### statement -------------------------------------------------------------
//
// code := statement (';' statement)* ';'?
// statement := select-stmt | create | insert
//
// create :=
//   CREATE VIEW ID AS select |
//   CREATE TABLE ID AS select |
//   CREATE TABLE ID '(' column-def-list ')' with?
//
// column-def-list := column-def (',' column-def)*
// column-def := ID type-name (NOT NULL)?
// with := WITH '(' option (',' option)* ')'
// option := (ID ('.' ID)* | STR) '=' const
//
// insert := INSERT INTO ID select
//
// select :=
//     SELECT projection
//     from
//     where?
//     group-by?
//     order-by?
//     limit?
//
// projection := project-var (',' project-var)*
// project-var := '*' | expr as?
// as := [AS ID]?
//
// from := FROM table-ref join*
// table-ref := ID as?
// join := join-kind table-ref (ON expr)?
// join-kind :=
//   JOIN | INNER JOIN | LEFT OUTER? JOIN | RIGHT OUTER? JOIN |
//   FULL OUTER? JOIN | CROSS JOIN
//
// where := WHERE expr
// group-by := GROUPBY expr (',' expr)*
// order-by := ORDERBY expr (',' expr)* ('asc' | 'desc')?
// limit := LIMIT INT
//
// ### expression -------------------------------------------------------------
// expr :=
//   binary  |
//   unary   |
//   primary
//
// binary := expr binary-op binary
// binary-op := ...
//
// unary := unary-op+ expr
// unary-op := ...
//
// primary :=
//   '(' expr ')'          |
//   CAST '(' expr AS ID ')' |
//   INTERVAL (STR|INT) ID |
//   ID '(' call-arg-list? ')' |
//   ID ('.' ID)?          |
//   const
//
// call-arg-list := '*' | expr (',' expr)*
//
// const := INT | FLOAT | TRUE | FALSE | NULL | STR
//
// BETWEEN and IN are accepted as binary operators and desugared during the
// parsing into >=/<= conjunction and equality disjunction respectively, so
// the planner never sees them.
//
// ----------------------------------------------------------------------------

import (
	"strconv"
	"time"

	"github.com/rivulet-io/rivulet/cerrors"
)

const (
	invalidOpPrec = -1
	maxOpPrec     = 7
)

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

func (self *Parser) posStart() int {
	return self.L.Cursor
}

func (self *Parser) posEnd() int {
	return self.L.Cursor
}

func (self *Parser) snippet(start, end int) string {
	if start >= end {
		start = end
	}
	return self.L.Source[start:end]
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return cerrors.New(cerrors.SyntaxError, "", "%s", self.L.Lexeme.Text)
	} else {
		return cerrors.New(cerrors.SyntaxError, "", "%s: %s", self.L.dinfo(), msg)
	}
}

func (self *Parser) expect(tk int) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	} else {
		return self.err("unexpected token during grammar parsing")
	}
}

func (self *Parser) expectId() (string, error) {
	if self.L.Token != TkId {
		return "", self.err("expect an identifier")
	}
	id := self.L.Lexeme.Text
	self.L.Next()
	return id, nil
}

func (self *Parser) currentCodeInfo(start int) CodeInfo {
	return CodeInfo{
		Start:   start,
		End:     self.posEnd(),
		Snippet: self.snippet(start, self.posEnd()),
	}
}

// ----------------------------------------------------------------------------
// Statement
// ----------------------------------------------------------------------------

// Parse consumes the whole source and returns the statement list, in source
// order. Empty statements, ie stray semicolons, are skipped.
func (self *Parser) Parse() ([]Statement, error) {
	self.L.Next()

	out := []Statement{}

	for self.L.Token != TkEof {
		if self.L.Token == TkError {
			return nil, self.err("")
		}
		if self.L.Token == TkSemicolon {
			self.L.Next()
			continue
		}

		stmt, err := self.parseStatement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)

		if self.L.Token != TkSemicolon && self.L.Token != TkEof {
			return nil, self.err("expect ';' or end of input after statement")
		}
	}

	return out, nil
}

func (self *Parser) parseStatement() (Statement, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkSelect:
		body, err := self.parseSelect()
		if err != nil {
			return nil, err
		}
		return &SelectStmt{
			CodeInfo: self.currentCodeInfo(start),
			Body:     body,
		}, nil

	case TkCreate:
		return self.parseCreate()

	case TkInsert:
		return self.parseInsert()

	default:
		return nil, self.err("expect SELECT, CREATE or INSERT to start a statement")
	}
}

func (self *Parser) parseCreate() (Statement, error) {
	start := self.posStart()
	self.L.Next() // eat CREATE

	switch self.L.Token {
	case TkView:
		self.L.Next()

		name, err := self.expectId()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkAs); err != nil {
			return nil, err
		}
		if self.L.Token != TkSelect {
			return nil, self.err("expect SELECT after CREATE VIEW ... AS")
		}
		body, err := self.parseSelect()
		if err != nil {
			return nil, err
		}
		return &CreateView{
			CodeInfo: self.currentCodeInfo(start),
			Name:     name,
			Body:     body,
		}, nil

	case TkTable:
		self.L.Next()

		name, err := self.expectId()
		if err != nil {
			return nil, err
		}

		if self.L.Token == TkAs {
			self.L.Next()
			if self.L.Token != TkSelect {
				return nil, self.err("expect SELECT after CREATE TABLE ... AS")
			}
			body, err := self.parseSelect()
			if err != nil {
				return nil, err
			}
			return &CreateTableAs{
				CodeInfo: self.currentCodeInfo(start),
				Name:     name,
				Body:     body,
			}, nil
		}

		return self.parseCreateTableDef(start, name)

	default:
		return nil, self.err("expect VIEW or TABLE after CREATE")
	}
}

func (self *Parser) parseCreateTableDef(
	start int,
	name string,
) (Statement, error) {
	if err := self.expect(TkLPar); err != nil {
		return nil, err
	}

	cols := []ColumnDef{}

	for self.L.Token != TkRPar {
		cname, err := self.expectId()
		if err != nil {
			return nil, err
		}
		tname, err := self.expectId()
		if err != nil {
			return nil, err
		}

		nullable := true
		if self.L.Token == TkNot {
			self.L.Next()
			if err := self.expect(TkNull); err != nil {
				return nil, err
			}
			nullable = false
		}

		cols = append(cols, ColumnDef{
			Name:     cname,
			TypeName: tname,
			Nullable: nullable,
		})

		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect ',' or ')' in column definition list")
		}
	}
	self.L.Next() // eat ')'

	opts := []TableOption{}
	if self.L.Token == TkWith {
		self.L.Next()
		var err error
		opts, err = self.parseTableOptions()
		if err != nil {
			return nil, err
		}
	}

	return &CreateTable{
		CodeInfo: self.currentCodeInfo(start),
		Name:     name,
		Columns:  cols,
		Options:  opts,
	}, nil
}

func (self *Parser) parseTableOptions() ([]TableOption, error) {
	if err := self.expect(TkLPar); err != nil {
		return nil, err
	}

	out := []TableOption{}

	for self.L.Token != TkRPar {
		key := ""

		switch self.L.Token {
		case TkStr:
			key = self.L.Lexeme.Text
			self.L.Next()
			break

		case TkId:
			// dotted option keys, ie tls.ca, are spelled without quotes
			key = self.L.Lexeme.Text
			self.L.Next()
			for self.L.Token == TkDot {
				self.L.Next()
				part, err := self.expectId()
				if err != nil {
					return nil, err
				}
				key = key + "." + part
			}
			break

		default:
			return nil, self.err("expect an option key, identifier or string")
		}

		if err := self.expect(TkEq); err != nil {
			return nil, err
		}

		value := self.parseConstExpr()
		if value == nil {
			return nil, self.err("expect a constant as option value")
		}

		out = append(out, TableOption{
			Key:   key,
			Value: value,
		})

		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect ',' or ')' in option list")
		}
	}
	self.L.Next() // eat ')'

	return out, nil
}

func (self *Parser) parseInsert() (Statement, error) {
	start := self.posStart()
	self.L.Next() // eat INSERT

	if err := self.expect(TkInto); err != nil {
		return nil, err
	}
	sink, err := self.expectId()
	if err != nil {
		return nil, err
	}
	if self.L.Token != TkSelect {
		return nil, self.err("expect SELECT after INSERT INTO <table>")
	}
	body, err := self.parseSelect()
	if err != nil {
		return nil, err
	}
	return &InsertStmt{
		CodeInfo: self.currentCodeInfo(start),
		Sink:     sink,
		Body:     body,
	}, nil
}

// ----------------------------------------------------------------------------
// Select
// ----------------------------------------------------------------------------

func (self *Parser) parseSelect() (*Select, error) {
	start := self.posStart()

	if err := self.expect(TkSelect); err != nil {
		return nil, err
	}

	projection, err := self.parseProjection()
	if err != nil {
		return nil, err
	}

	if self.L.Token != TkFrom {
		return nil, self.err("expect FROM clause, a source-less SELECT is not allowed")
	}
	from, err := self.parseFrom()
	if err != nil {
		return nil, err
	}

	out := &Select{
		Projection: projection,
		From:       from,
	}

	if self.L.Token == TkWhere {
		where, err := self.parseWhere()
		if err != nil {
			return nil, err
		}
		out.Where = where
	}

	if self.L.Token == TkGroupBy {
		groupBy, err := self.parseGroupBy()
		if err != nil {
			return nil, err
		}
		out.GroupBy = groupBy
	}

	if self.L.Token == TkOrderBy {
		orderBy, err := self.parseOrderBy()
		if err != nil {
			return nil, err
		}
		out.OrderBy = orderBy
	}

	if self.L.Token == TkLimit {
		limit, err := self.parseLimit()
		if err != nil {
			return nil, err
		}
		out.Limit = limit
	}

	out.CodeInfo = self.currentCodeInfo(start)
	return out, nil
}

func (self *Parser) parseProjectionVar(idx int) (SelectVar, error) {
	start := self.posStart()

	if self.L.Token == TkMul {
		self.L.Next()
		return &Star{
			CodeInfo: self.currentCodeInfo(start),
		}, nil
	}

	value, err := self.parseExpr()
	if err != nil {
		return nil, err
	}

	as := ""
	if self.L.Token == TkAs {
		self.L.Next()
		as, err = self.expectId()
		if err != nil {
			return nil, err
		}
	}

	return &Col{
		CodeInfo: self.currentCodeInfo(start),
		ColIndex: idx,
		As:       as,
		Value:    value,
	}, nil
}

func (self *Parser) parseProjection() (*Projection, error) {
	start := self.posStart()

	valueList := SelectVarList{}

	for {
		v, err := self.parseProjectionVar(len(valueList))
		if err != nil {
			return nil, err
		}
		valueList = append(valueList, v)

		if self.L.Token == TkComma {
			self.L.Next()
		} else {
			break
		}
	}

	return &Projection{
		CodeInfo:  self.currentCodeInfo(start),
		ValueList: valueList,
	}, nil
}

func (self *Parser) parseTableRef() (*TableRef, error) {
	start := self.posStart()

	name, err := self.expectId()
	if err != nil {
		return nil, err
	}

	alias := ""
	if self.L.Token == TkAs {
		self.L.Next()
		alias, err = self.expectId()
		if err != nil {
			return nil, err
		}
	} else if self.L.Token == TkId {
		// bare alias, ie FROM orders o
		alias = self.L.Lexeme.Text
		self.L.Next()
	}

	return &TableRef{
		CodeInfo: self.currentCodeInfo(start),
		Name:     name,
		Alias:    alias,
	}, nil
}

func (self *Parser) parseJoinKind() (int, bool, error) {
	switch self.L.Token {
	case TkJoin:
		self.L.Next()
		return JoinInner, true, nil

	case TkInner:
		self.L.Next()
		if err := self.expect(TkJoin); err != nil {
			return 0, false, err
		}
		return JoinInner, true, nil

	case TkLeft, TkRight, TkFull:
		kind := JoinLeft
		if self.L.Token == TkRight {
			kind = JoinRight
		} else if self.L.Token == TkFull {
			kind = JoinFull
		}
		self.L.Next()
		if self.L.Token == TkOuter {
			self.L.Next()
		}
		if err := self.expect(TkJoin); err != nil {
			return 0, false, err
		}
		return kind, true, nil

	case TkCross:
		self.L.Next()
		if err := self.expect(TkJoin); err != nil {
			return 0, false, err
		}
		return JoinCross, true, nil

	default:
		return 0, false, nil
	}
}

func (self *Parser) parseFrom() (*From, error) {
	start := self.posStart()
	self.L.Next() // eat FROM

	table, err := self.parseTableRef()
	if err != nil {
		return nil, err
	}

	out := &From{
		Table: table,
	}

	for {
		jstart := self.posStart()

		kind, isJoin, err := self.parseJoinKind()
		if err != nil {
			return nil, err
		}
		if !isJoin {
			break
		}

		jtable, err := self.parseTableRef()
		if err != nil {
			return nil, err
		}

		var on Expr
		if kind != JoinCross {
			if err := self.expect(TkOn); err != nil {
				return nil, err
			}
			on, err = self.parseExpr()
			if err != nil {
				return nil, err
			}
		}

		out.Joins = append(out.Joins, &JoinClause{
			CodeInfo: self.currentCodeInfo(jstart),
			Kind:     kind,
			Table:    jtable,
			On:       on,
		})
	}

	out.CodeInfo = self.currentCodeInfo(start)
	return out, nil
}

func (self *Parser) parseWhere() (*Where, error) {
	start := self.posStart()
	self.L.Next() // eat WHERE

	condition, err := self.parseExpr()
	if err != nil {
		return nil, err
	}
	return &Where{
		CodeInfo:  self.currentCodeInfo(start),
		Condition: condition,
	}, nil
}

func (self *Parser) parseExprList() ([]Expr, error) {
	out := []Expr{}
	for {
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)

		if self.L.Token == TkComma {
			self.L.Next()
		} else {
			break
		}
	}
	return out, nil
}

func (self *Parser) parseGroupBy() (*GroupBy, error) {
	start := self.posStart()
	self.L.Next() // eat GROUP BY

	name, err := self.parseExprList()
	if err != nil {
		return nil, err
	}
	return &GroupBy{
		CodeInfo: self.currentCodeInfo(start),
		Name:     name,
	}, nil
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	start := self.posStart()
	self.L.Next() // eat ORDER BY

	name, err := self.parseExprList()
	if err != nil {
		return nil, err
	}

	order := OrderAsc
	if self.L.Token == TkId {
		switch self.L.Lexeme.Text {
		case "asc":
			self.L.Next()
			break
		case "desc":
			order = OrderDesc
			self.L.Next()
			break
		default:
			break
		}
	}

	return &OrderBy{
		CodeInfo: self.currentCodeInfo(start),
		Order:    order,
		Name:     name,
	}, nil
}

func (self *Parser) parseLimit() (*Limit, error) {
	start := self.posStart()
	self.L.Next() // eat LIMIT

	if self.L.Token != TkInt {
		return nil, self.err("expect an integer literal after LIMIT")
	}
	limit := self.L.Lexeme.Int
	self.L.Next()

	return &Limit{
		CodeInfo: self.currentCodeInfo(start),
		Limit:    limit,
	}, nil
}

// ----------------------------------------------------------------------------
// Expression
// ----------------------------------------------------------------------------

func (self *Parser) parseExpr() (Expr, error) {
	return self.parseBinary()
}

func (self *Parser) binPrec(tk int) int {
	switch tk {
	case TkOr:
		return 0
	case TkAnd:
		return 1
	case TkIn, TkBetween, TkNot:
		return 2
	case TkEq, TkNe:
		return 3
	case TkLt, TkLe, TkGt, TkGe:
		return 4
	case TkAdd, TkSub:
		return 5
	case TkMul, TkDiv, TkMod:
		return 6
	default:
		return invalidOpPrec
	}
}

// Binary parsing, precedence climbing
func (self *Parser) doParseBin(prec int) (Expr, error) {
	if prec == maxOpPrec {
		return self.parseUnary()
	}

	start := self.posStart()

	l, err := self.parseUnary()
	if err != nil {
		return nil, err
	}

	return self.doParseBinRest(l, prec, start)
}

func (self *Parser) parseBinary() (Expr, error) {
	return self.doParseBin(0)
}

func (self *Parser) doParseBinBetweenRHS(
	prec int,
) (Expr, Expr, error) {
	lowerBound, err := self.doParseBin(prec)
	if err != nil {
		return nil, nil, err
	}

	if self.L.Token != TkAnd {
		return nil, nil, self.err("expect AND for BETWEEN operator")
	}
	self.L.Next()

	upperBound, err := self.doParseBin(prec)
	if err != nil {
		return nil, nil, err
	}

	return lowerBound, upperBound, nil
}

func (self *Parser) doParseBinInRHS(
	prec int,
) ([]Expr, error) {
	if self.L.Token != TkLPar {
		return nil, self.err("expect '(' for IN operator's rhs")
	}
	self.L.Next()

	out := []Expr{}

	for self.L.Token != TkRPar {
		if v, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			out = append(out, v)
		}
		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect a ',' or ')' after element in IN's rhs")
		}
	}

	self.L.Next()
	if len(out) == 0 {
		return nil, self.err("IN operator's RHS is an empty set, which is not allowed")
	}
	return out, nil
}

func (self *Parser) doParseBinRest(lhs Expr,
	prec int,
	start int,
) (Expr, error) {

	for {
		tk := self.L.Token
		nextPrec := self.binPrec(tk)

		if nextPrec == invalidOpPrec {
			break
		} else if nextPrec < prec {
			break
		}

		ntk := self.L.Next() // eat the operator token

		if tk == TkNot {
			switch ntk {
			case TkIn:
				tk = tkNotIn
				self.L.Next()
				break

			case TkBetween:
				tk = tkNotBetween
				self.L.Next()
				break
			default:
				return nil, self.err(
					"NOT operator shows up, but expect a suffix operator, " +
						"example like NOT IN, NOT BETWEEN ... ",
				)
			}
		}

		var newNode Expr
		switch tk {
		case TkBetween, tkNotBetween:
			if lower, upper, err := self.doParseBinBetweenRHS(nextPrec + 1); err != nil {
				return nil, err
			} else {
				ge := &Binary{
					Op:       TkGe,
					L:        lhs,
					R:        lower,
					CodeInfo: self.currentCodeInfo(start),
				}

				le := &Binary{
					Op:       TkLe,
					L:        CloneExpr(lhs),
					R:        upper,
					CodeInfo: self.currentCodeInfo(start),
				}

				between := &Binary{
					Op:       TkAnd,
					L:        ge,
					R:        le,
					CodeInfo: self.currentCodeInfo(start),
				}

				if tk == TkBetween {
					newNode = between
				} else {
					newNode = &Unary{
						Op:       []int{TkNot},
						Operand:  between,
						CodeInfo: self.currentCodeInfo(start),
					}
				}
			}
			break

		case TkIn, tkNotIn:
			if v, err := self.doParseBinInRHS(nextPrec + 1); err != nil {
				return nil, err
			} else {
				var out Expr

				for idx, vv := range v {
					l := lhs
					if idx > 0 {
						l = CloneExpr(lhs)
					}
					eq := &Binary{
						Op:       TkEq,
						L:        l,
						R:        vv,
						CodeInfo: self.currentCodeInfo(start),
					}

					if out == nil {
						out = eq
					} else {
						out = &Binary{
							Op:       TkOr,
							L:        out,
							R:        eq,
							CodeInfo: self.currentCodeInfo(start),
						}
					}
				}

				if tk == tkNotIn {
					newNode = &Unary{
						Op:       []int{TkNot},
						Operand:  out,
						CodeInfo: self.currentCodeInfo(start),
					}
				} else {
					newNode = out
				}
			}
			break

		default:
			if v, err := self.doParseBin(nextPrec + 1); err != nil {
				return nil, err
			} else {
				newNode = &Binary{
					Op:       tk,
					L:        lhs,
					R:        v,
					CodeInfo: self.currentCodeInfo(start),
				}
			}
			break
		}

		lhs = newNode
		start = self.posEnd()
	}

	return lhs, nil
}

func (self *Parser) parseUnary() (Expr, error) {
	opList := []int{}

	start := self.posStart()

	for {
		cur := self.L.Token
		if cur == TkAdd || cur == TkSub || cur == TkNot {
			opList = append(opList, cur)
			self.L.Next()
		} else {
			break
		}
	}

	expr, err := self.parsePrimary()
	if err != nil {
		return nil, err
	}

	end := self.posEnd()

	if len(opList) > 0 {
		return &Unary{
			Op:      opList,
			Operand: expr,
			CodeInfo: CodeInfo{
				Start:   start,
				End:     end,
				Snippet: self.snippet(start, end),
			},
		}, nil
	} else {
		return expr, nil
	}
}

func (self *Parser) parseConstExpr() *Const {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse:
		booleanVal := self.L.Token == TkTrue
		self.L.Next()
		return &Const{
			Ty:       ConstBool,
			Bool:     booleanVal,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkNull:
		self.L.Next()
		return &Const{
			Ty:       ConstNull,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkStr:
		str := self.L.Lexeme.Text
		self.L.Next()
		return &Const{
			Ty:       ConstStr,
			String:   str,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkInt:
		v := self.L.Lexeme.Int
		self.L.Next()
		return &Const{
			Ty:       ConstInt,
			Int:      v,
			CodeInfo: self.currentCodeInfo(start),
		}

	case TkReal:
		v := self.L.Lexeme.Real
		self.L.Next()
		return &Const{
			Ty:       ConstReal,
			Real:     v,
			CodeInfo: self.currentCodeInfo(start),
		}

	default:
		return nil
	}
}

func intervalUnit(name string) (time.Duration, bool) {
	switch name {
	case "millisecond", "milliseconds":
		return time.Millisecond, true
	case "second", "seconds":
		return time.Second, true
	case "minute", "minutes":
		return time.Minute, true
	case "hour", "hours":
		return time.Hour, true
	case "day", "days":
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// INTERVAL '30' second, the quoted value form follows the usual SQL spelling
// though a bare integer is accepted as well
func (self *Parser) parseInterval() (Expr, error) {
	start := self.posStart()
	self.L.Next() // eat INTERVAL

	value := int64(0)

	switch self.L.Token {
	case TkStr:
		v, err := strconv.ParseInt(self.L.Lexeme.Text, 10, 64)
		if err != nil {
			return nil, self.err("interval value must be an integer")
		}
		value = v
		self.L.Next()
		break

	case TkInt:
		value = self.L.Lexeme.Int
		self.L.Next()
		break

	default:
		return nil, self.err("expect an integer or string literal after INTERVAL")
	}

	if value <= 0 {
		return nil, self.err("interval value must be positive")
	}

	unitName, err := self.expectId()
	if err != nil {
		return nil, err
	}
	unit, ok := intervalUnit(unitName)
	if !ok {
		return nil, self.err("unknown interval unit: " + unitName)
	}

	return &Const{
		Ty:       ConstInterval,
		Dur:      time.Duration(value) * unit,
		CodeInfo: self.currentCodeInfo(start),
	}, nil
}

func (self *Parser) parseCast() (Expr, error) {
	start := self.posStart()
	self.L.Next() // eat CAST

	if err := self.expect(TkLPar); err != nil {
		return nil, err
	}
	operand, err := self.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkAs); err != nil {
		return nil, err
	}
	typeName, err := self.expectId()
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkRPar); err != nil {
		return nil, err
	}

	return &Cast{
		Operand:  operand,
		TypeName: typeName,
		CodeInfo: self.currentCodeInfo(start),
	}, nil
}

func (self *Parser) parseCall(
	start int,
	name string,
) (Expr, error) {
	self.L.Next() // eat '('

	params := []Expr{}

	// count(*) and friends, a lone star argument means counting the row
	// itself, represented as an empty parameter list
	if self.L.Token == TkMul {
		self.L.Next()
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return &Call{
			Name:     name,
			CodeInfo: self.currentCodeInfo(start),
		}, nil
	}

	for self.L.Token != TkRPar {
		v, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		params = append(params, v)

		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect ',' or ')' in call argument list")
		}
	}
	self.L.Next() // eat ')'

	return &Call{
		Name:       name,
		Parameters: params,
		CodeInfo:   self.currentCodeInfo(start),
	}, nil
}

func (self *Parser) parsePrimary() (Expr, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse, TkNull, TkStr, TkInt, TkReal:
		c := self.parseConstExpr()
		if c == nil {
			panic("unreachable")
		}
		return c, nil

	case TkInterval:
		return self.parseInterval()

	case TkCast:
		return self.parseCast()

	case TkId:
		id := self.L.Lexeme.Text
		self.L.Next()

		if self.L.Token == TkLPar {
			return self.parseCall(start, id)
		}

		if self.L.Token == TkDot {
			self.L.Next()
			col, err := self.expectId()
			if err != nil {
				return nil, err
			}
			return &Ref{
				Table:    id,
				Id:       col,
				CodeInfo: self.currentCodeInfo(start),
			}, nil
		}

		return &Ref{
			Id:       id,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	case TkLPar:
		self.L.Next()
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, self.err("unexpected token for expression")
	}
}
