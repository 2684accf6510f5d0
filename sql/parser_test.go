package sql

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"testing"
)

func doTestStmt(lhs, rhs string, assert *assert.Assertions) {
	p := newParser(rhs)

	stmts, err := p.Parse()
	if err != nil {
		print(fmt.Sprintf("%s\n", err))
	}
	assert.True(err == nil)
	assert.Equal(1, len(stmts))
	assert.Equal(lhs, PrintStatement(stmts[0]))
}

func doTestStmtErr(rhs string, assert *assert.Assertions) {
	p := newParser(rhs)
	_, err := p.Parse()
	assert.True(err != nil)
}

func TestSelectBasic(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`select
a
from orders`, "select a from orders", assert)

	doTestStmt(
		`select
a as t, b as t2
from orders`, "select a as t, b as t2 from orders", assert)

	doTestStmt(
		`select
*
from orders as o`, "select * from orders o", assert)

	doTestStmt(
		`select
*
from orders as o`, "select * from orders as o", assert)

	doTestStmt(
		`select
(a+1) as x
from orders`, "SELECT A + 1 AS X FROM ORDERS", assert)
}

func TestSelectWhere(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`select
a
from orders
where (a>1)`, "select a from orders where a > 1", assert)

	doTestStmt(
		`select
a
from orders
where ((a>1) and (b!=2))`, "select a from orders where a > 1 and b <> 2", assert)

	// BETWEEN desugars to a >=/<= conjunction
	doTestStmt(
		`select
a
from orders
where ((a>=1) and (a<=10))`, "select a from orders where a between 1 and 10", assert)

	// IN desugars to an equality disjunction
	doTestStmt(
		`select
a
from orders
where ((a=1) or (a=2))`, "select a from orders where a in (1, 2)", assert)

	doTestStmt(
		`select
a
from orders
where not ((a=1) or (a=2))`, "select a from orders where a not in (1, 2)", assert)

	doTestStmt(
		`select
a
from orders
where not ((a>=1) and (a<=2))`, "select a from orders where a not between 1 and 2", assert)
}

func TestSelectJoin(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`select
*
from orders as o
inner join users as u on (o.uid=u.id)`,
		"select * from orders o join users u on o.uid = u.id", assert)

	doTestStmt(
		`select
*
from orders as o
left join users as u on (o.uid=u.id)`,
		"select * from orders o left outer join users u on o.uid = u.id", assert)

	doTestStmt(
		`select
*
from orders as o
full join users as u on (o.uid=u.id)`,
		"select * from orders o full join users u on o.uid = u.id", assert)

	doTestStmt(
		`select
*
from orders
cross join users`,
		"select * from orders cross join users", assert)

	// join without ON, other than cross join, is not acceptable
	doTestStmtErr("select * from orders join users", assert)
}

func TestSelectGroupBy(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`select
uid, count() as c
from orders
group by uid`, "select uid, count(*) as c from orders group by uid", assert)

	doTestStmt(
		`select
uid, sum(amount) as total
from orders
group by uid, tumble(interval(1m0s))`,
		"select uid, sum(amount) as total from orders "+
			"group by uid, tumble(interval '60' second)", assert)

	doTestStmt(
		`select
uid
from orders
group by uid, hop(interval(30s),interval(1m0s))`,
		"select uid from orders group by uid, "+
			"hop(interval '30' second, interval 1 minute)", assert)
}

func TestSelectOrderLimit(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`select
a
from orders
order by a desc
limit 10`, "select a from orders order by a desc limit 10", assert)

	doTestStmt(
		`select
a
from orders
order by a asc`, "select a from orders order by a", assert)

	doTestStmtErr("select a from orders limit 'ten'", assert)
}

func TestCastAndInterval(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`select
cast(a as bigint) as x
from orders`, "select cast(a as bigint) as x from orders", assert)

	doTestStmt(
		`select
interval(24h0m0s)
from orders`, "select interval '1' day from orders", assert)

	doTestStmtErr("select interval '0' second from orders", assert)
	doTestStmtErr("select interval 'abc' second from orders", assert)
	doTestStmtErr("select interval '1' fortnight from orders", assert)
}

func TestCreate(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`create view v as
select
a
from orders`, "create view v as select a from orders", assert)

	doTestStmt(
		`create table t as
select
a
from orders`, "create table t as select a from orders", assert)

	doTestStmt(
		`create table events (id bigint, name varchar)`,
		"create table events (id bigint, name varchar) with "+
			"(connector = 'mqtt', topic = 'e', 'tls.ca' = '/ca.pem')", assert)

	doTestStmtErr("create index i on t", assert)
}

func TestInsert(t *testing.T) {
	assert := assert.New(t)

	doTestStmt(
		`insert into sink
select
a
from orders`, "insert into sink select a from orders", assert)

	doTestStmtErr("insert into sink values (1)", assert)
}

func TestMultiStatement(t *testing.T) {
	assert := assert.New(t)

	p := newParser(`
create view v as select a from orders;
select a from v;
`)
	stmts, err := p.Parse()
	assert.NoError(err)
	assert.Equal(2, len(stmts))
	assert.Equal(StmtCreateView, stmts[0].StmtType())
	assert.Equal(StmtSelect, stmts[1].StmtType())

	// empty input parses to an empty statement list
	p = newParser(" ;; ")
	stmts, err = p.Parse()
	assert.NoError(err)
	assert.Equal(0, len(stmts))
}

func TestCloneExpr(t *testing.T) {
	assert := assert.New(t)

	p := newParser("select a + t.b * 2 from orders")
	stmts, err := p.Parse()
	assert.NoError(err)

	sel := stmts[0].(*SelectStmt).Body
	orig := sel.Projection.ValueList[0].(*Col).Value
	cp := CloneExpr(orig)

	assert.Equal(PrintExpr(orig), PrintExpr(cp))
	assert.False(orig == cp)

	// mutating the clone's binding must not touch the original
	cpRef := cp.(*Binary).L.(*Ref)
	cpRef.Binding.Set(3)
	origRef := orig.(*Binary).L.(*Ref)
	assert.True(origRef.Binding.IsFree())
}
