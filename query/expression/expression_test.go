package expression

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

func compile(n Node) (string, []binder.Binding) {
	b := binder.New()
	sql := n.SQL(b)
	return sql, b.Bindings()
}

func TestFunctionZeroArgs(t *testing.T) {
	sql, bindings := compile(NewFunction("MyFunction", nil))
	assert.Equal(t, "MyFunction()", sql)
	assert.Empty(t, bindings)
}

func TestFunctionBindsArguments(t *testing.T) {
	b := binder.New()
	sql := NewFunction("MyFunction", []any{"foo", "bar"}).SQL(b)
	assert.Equal(t, "MyFunction(:c0, :c1)", sql)

	c0, ok := b.Lookup(":c0")
	require.True(t, ok)
	assert.Equal(t, "foo", c0.Value)
	c1, ok := b.Lookup(":c1")
	require.True(t, ok)
	assert.Equal(t, "bar", c1.Value)
}

func TestFunctionLiteralArguments(t *testing.T) {
	tests := []struct {
		name string
		arg  any
	}{
		{"marked", Marked{"foo": MarkLiteral}},
		{"literal node", NewLiteral("foo")},
		{"identifier node", NewIdentifier("foo")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, bindings := compile(NewFunction("MyFunction", []any{tt.arg, "bar"}))
			assert.Equal(t, "MyFunction(foo, :c0)", sql)
			require.Len(t, bindings, 1)
			assert.Equal(t, "bar", bindings[0].Value)
		})
	}
}

func TestFunctionMarkedOnlyInlinesLiteralAndIdentifier(t *testing.T) {
	f := NewFunction("F", []any{Marked{
		"created":               MarkIdentifier,
		"x'); DROP TABLE u; --": "bogus",
	}}, types.String)

	sql, bindings := compile(f)
	assert.Equal(t, "F(created, :c0)", sql)
	require.Len(t, bindings, 1)
	assert.Equal(t, "x'); DROP TABLE u; --", bindings[0].Value)
	assert.Equal(t, types.String, bindings[0].Type)
}

func TestFunctionNesting(t *testing.T) {
	inner := NewFunction("MyFunction", []any{"foo", "bar"})
	outer := NewFunction("Wrapper", []any{Marked{"bar": MarkLiteral}, inner})

	sql, bindings := compile(outer)
	assert.Equal(t, "Wrapper(bar, MyFunction(:c0, :c1))", sql)
	require.Len(t, bindings, 2)
	assert.Equal(t, ":c0", bindings[0].Placeholder)
	assert.Equal(t, "foo", bindings[0].Value)
	assert.Equal(t, ":c1", bindings[1].Placeholder)
	assert.Equal(t, "bar", bindings[1].Value)
}

func TestFunctionArgumentTypes(t *testing.T) {
	f := NewFunction("DATE_ADD", []any{NewIdentifier("created"), 7}, "", types.Integer)
	f.Add(types.String, "day")

	sql, bindings := compile(f)
	assert.Equal(t, "DATE_ADD(created, :c0, :c1)", sql)
	require.Len(t, bindings, 2)
	assert.Equal(t, types.Integer, bindings[0].Type)
	assert.Equal(t, types.String, bindings[1].Type)
}

func TestFunctionCompilesIndependentlyPerBinder(t *testing.T) {
	f := NewFunction("MyFunction", []any{"foo", "bar"})

	b := binder.New()
	b.Bind("first", types.String)
	assert.Equal(t, "MyFunction(:c1, :c2)", f.SQL(b))

	sql, _ := compile(f)
	assert.Equal(t, "MyFunction(:c0, :c1)", sql)
}

func TestAggregate(t *testing.T) {
	agg := NewAggregate("STRING_AGG", []any{NewIdentifier("name"), ","}, "", types.String).
		Distinct().
		OrderBy(MustOrderBy(OrderTerm{Expr: "name", Direction: "asc"})).
		Filter(AllOf().Eq("active", true, types.Boolean))

	sql, bindings := compile(agg)
	assert.Equal(t, "STRING_AGG(DISTINCT name, :c0 ORDER BY name ASC) FILTER (WHERE active = :c1)", sql)
	require.Len(t, bindings, 2)
	assert.Equal(t, true, bindings[1].Value)
}

func TestCount(t *testing.T) {
	sql, _ := compile(Count(""))
	assert.Equal(t, "COUNT(*)", sql)
	assert.Equal(t, types.Integer, Count("id").ReturnType())
}

func TestTupleComparisonSingle(t *testing.T) {
	tc, err := NewTupleComparison([]any{"field1", "field2"}, []any{1, 2}, []types.Type{types.Integer, types.Integer}, "=")
	require.NoError(t, err)

	b := binder.New()
	assert.Equal(t, "(field1, field2) = (:c0, :c1)", tc.SQL(b))

	c0, _ := b.Lookup(":c0")
	assert.Equal(t, binder.Binding{Placeholder: ":c0", Value: 1, Type: types.Integer}, c0)
	c1, _ := b.Lookup(":c1")
	assert.Equal(t, binder.Binding{Placeholder: ":c1", Value: 2, Type: types.Integer}, c1)
}

func TestTupleComparisonMulti(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		types    []types.Type
	}{
		{"upper IN", "IN", []types.Type{types.Integer, types.String}},
		{"lower in", "in", []types.Type{types.Integer, types.String}},
		{"not in", "NOT IN", []types.Type{types.Integer, types.String}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := [][]any{{1, "a"}, {2, "b"}}
			tc, err := NewTupleComparison([]any{"id", "code"}, values, tt.types, tt.operator)
			require.NoError(t, err)
			assert.True(t, tc.IsMulti())

			sql, bindings := compile(tc)
			assert.Equal(t, "(id, code) "+tt.operator+" ((:c0, :c1), (:c2, :c3))", sql)
			require.Len(t, bindings, 4)
			assert.Equal(t, types.String, bindings[3].Type)
		})
	}
}

func TestTupleComparisonMultiByTypeMarker(t *testing.T) {
	tc, err := NewTupleComparison([]any{"a", "b"}, []any{[]any{1, []int{2, 3}}}, []types.Type{types.Integer, "integer[]"}, "=")
	require.NoError(t, err)
	assert.True(t, tc.IsMulti())

	sql, bindings := compile(tc)
	assert.Equal(t, "(a, b) = ((:c0, (:c1, :c2)))", sql)
	require.Len(t, bindings, 3)
	assert.Equal(t, types.Integer, bindings[2].Type)
}

func TestTupleComparisonSubQuery(t *testing.T) {
	sub := NewLiteral("SELECT a, b FROM other")
	tc, err := NewTupleComparison([]any{"a", "b"}, sub, nil, "IN")
	require.NoError(t, err)

	sql, _ := compile(tc)
	assert.Equal(t, "(a, b) IN (SELECT a, b FROM other)", sql)
}

func TestTupleComparisonArity(t *testing.T) {
	tests := []struct {
		name     string
		fields   []any
		values   any
		operator string
	}{
		{"single tuple too short", []any{"a", "b"}, []any{1}, "="},
		{"single tuple too long", []any{"a"}, []any{1, 2}, "="},
		{"multi row too short", []any{"a", "b"}, []any{[]any{1, 2}, []any{3}}, "IN"},
		{"multi given single", []any{"a", "b"}, []any{1, 2}, "IN"},
		{"single given multi", []any{"a", "b"}, []any{[]any{1, 2}, []any{3, 4}}, "="},
		{"empty multi", []any{"a"}, []any{}, "IN"},
		{"no fields", nil, []any{}, "="},
		{"scalar values", []any{"a"}, 1, "="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := NewTupleComparison(tt.fields, tt.values, nil, tt.operator)
			assert.Nil(t, tc)
			assert.ErrorIs(t, err, ErrInvalidExpression)
		})
	}

	assert.Panics(t, func() {
		MustTupleComparison([]any{"a", "b"}, []any{1}, nil, "=")
	})
}

func TestComparison(t *testing.T) {
	c := MustComparison("id", 5, types.Integer, "")
	sql, bindings := compile(c)
	assert.Equal(t, "id = :c0", sql)
	assert.Equal(t, types.Integer, bindings[0].Type)

	in := MustComparison(QualifiedField("u", "id"), []int{1, 2, 3}, "integer[]", "IN")
	sql, bindings = compile(in)
	assert.Equal(t, "u.id IN (:c0, :c1, :c2)", sql)
	require.Len(t, bindings, 3)
	assert.Equal(t, types.Integer, bindings[0].Type)

	_, err := NewComparison("id", []int{}, "integer[]", "IN")
	assert.ErrorIs(t, err, ErrInvalidExpression)
	_, err = NewComparison("", 1, types.Integer, "=")
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestComparisonWithNodeValue(t *testing.T) {
	c := MustComparison("total", NewFunction("MAX", []any{NewIdentifier("amount")}), "", ">=")
	sql, bindings := compile(c)
	assert.Equal(t, "total >= MAX(amount)", sql)
	assert.Empty(t, bindings)
}

func TestQueryExpression(t *testing.T) {
	tests := []struct {
		name string
		expr *QueryExpression
		want string
	}{
		{"empty", AllOf(), ""},
		{"single", AllOf().Eq("a", 1, types.Integer), "a = :c0"},
		{"and", AllOf().Eq("a", 1, types.Integer).Gt("b", 2, types.Integer), "(a = :c0 AND b > :c1)"},
		{"or", AnyOf().Lt("a", 1, types.Integer).Lte("b", 2, types.Integer), "(a < :c0 OR b <= :c1)"},
		{
			"nested",
			AllOf().Eq("a", 1, types.Integer).Or(
				MustComparison("b", 2, types.Integer, "="),
				MustComparison("c", 3, types.Integer, "!="),
			),
			"(a = :c0 AND (b = :c1 OR c != :c2))",
		},
		{"in", AllOf().In("id", []int{1, 2}, types.Integer), "id IN (:c0, :c1)"},
		{"not in", AllOf().NotIn("id", []int{1}, types.Integer), "id NOT IN (:c0)"},
		{"null checks", AllOf().IsNull("a").IsNotNull("b"), "(a IS NULL AND b IS NOT NULL)"},
		{"like", AllOf().Like("name", "a%", types.String).NotLike("name", "%b", types.String), "(name LIKE :c0 AND name NOT LIKE :c1)"},
		{"between", AllOf().Between("n", 1, 9, types.Integer), "n BETWEEN :c0 AND :c1"},
		{"not", AllOf().Not(AllOf().Eq("a", 1, types.Integer)), "NOT (a = :c0)"},
		{"not compound", AllOf().Not(AnyOf().Eq("a", 1, types.Integer).Eq("b", 2, types.Integer)), "NOT (a = :c0 OR b = :c1)"},
		{"empty group skipped", AllOf().Eq("a", 1, types.Integer).And(), "a = :c0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.expr.Err())
			sql, _ := compile(tt.expr)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestQueryExpressionRecordsErrors(t *testing.T) {
	q := AllOf().Eq("a", 1, types.Integer).In("b", []int{}, types.Integer)
	assert.Equal(t, 1, q.Len())
	assert.ErrorIs(t, q.Err(), ErrInvalidExpression)

	outer := AllOf(q)
	assert.ErrorIs(t, Validate(outer), ErrInvalidExpression)
	assert.NoError(t, Validate(AllOf().Eq("a", 1, types.Integer)))
}

func TestOrderBy(t *testing.T) {
	o, err := NewOrderBy(
		OrderTerm{Expr: "name", Direction: "asc"},
		OrderTerm{Expr: NewFunction("LENGTH", []any{NewIdentifier("name")}), Direction: Desc},
		OrderTerm{Expr: "id"},
	)
	require.NoError(t, err)

	sql, _ := compile(o)
	assert.Equal(t, "ORDER BY name ASC, LENGTH(name) DESC, id", sql)

	_, err = NewOrderBy(OrderTerm{Expr: "name", Direction: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidExpression)
	_, err = NewOrderBy(OrderTerm{Expr: ""})
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestTraverseVisitsExpressionChildren(t *testing.T) {
	inner := NewFunction("MyFunction", []any{"foo", NewIdentifier("bar")})
	cmp := MustComparison("a", inner, "", "=")
	root := AllOf(cmp, IsNull(NewField("b")))

	nodes := Collect(root)
	require.Len(t, nodes, 5)
	assert.Same(t, cmp, nodes[0])
	assert.Same(t, inner, nodes[1])
	assert.IsType(t, &Identifier{}, nodes[2])
	assert.IsType(t, &Unary{}, nodes[3])
	assert.IsType(t, &Field{}, nodes[4])
}

func TestTraverseSkipsScalars(t *testing.T) {
	tc := MustTupleComparison([]any{"a", NewField("b")}, []any{1, NewLiteral("NOW()")}, nil, "=")
	nodes := Collect(tc)
	require.Len(t, nodes, 2)
	assert.IsType(t, &Field{}, nodes[0])
	assert.IsType(t, &Literal{}, nodes[1])
}

func TestCompositeGolden(t *testing.T) {
	where := AllOf().
		Eq("status", "active", types.String).
		Tuple([]any{"org_id", "team_id"}, [][]any{{1, 10}, {2, 20}}, []types.Type{types.Integer, types.Integer}, "IN").
		Or(
			MustComparison("created", NewFunction("DATE_SUB", []any{Marked{"NOW()": MarkLiteral}, 30}, "", types.Integer), "", ">"),
			IsNull("deleted_at"),
		)
	require.NoError(t, where.Err())

	sql, _ := compile(where)
	g := goldie.New(t)
	g.Assert(t, "composite_where", []byte(sql))
}
