package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

func TestExprRender(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{All(), ""},
		{Eq("name", Str("alice")), `name="alice"`},
		{Gt("age", Number(21)), "age>21"},
		{Gte("age", Number(21)), "age>=21"},
		{Lt("age", Number(-3)), "age<-3"},
		{Lte("age", Number(0)), "age<=0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := tt.expr.Render()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}
}

func TestExprUnsupported(t *testing.T) {
	for name, e := range map[string]Expr{
		"and": And(Eq("a", Number(1)), Eq("b", Number(2))),
		"or":  Or(Eq("a", Number(1)), Eq("b", Number(2))),
		"map": Eq("meta", Map()),
	} {
		_, err := e.Render()
		assert.ErrorIs(t, err, dfs.ErrUnsupported, name)
	}

	_, err := Eq(" ", Str("x")).Render()
	assert.ErrorIs(t, err, dfs.ErrInvalidArgument)
}

func TestSimpleIndexes(t *testing.T) {
	si, err := SimpleIndexes([]Field{{Name: "year", Type: FieldNumber}, {Name: "title", Type: FieldString}, {Name: "meta", Type: FieldMap}})
	require.NoError(t, err)
	assert.Equal(t, "meta=map,title=string,year=number", si)

	_, err = SimpleIndexes([]Field{{Name: "x", Type: FieldType(9)}})
	assert.Error(t, err)

	ft, err := ParseFieldType("Number")
	require.NoError(t, err)
	assert.Equal(t, FieldNumber, ft)
	assert.Equal(t, "FieldType(9)", FieldType(9).String())
}

func TestParseExpr(t *testing.T) {
	for _, in := range []string{`name="alice"`, "age>21", "age>=21", "age<-3", "age<=0", ""} {
		e, err := ParseExpr(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, e.String())
	}

	e, err := ParseExpr(` title = "a b" `)
	require.NoError(t, err)
	assert.Equal(t, `title="a b"`, e.String())

	for _, bad := range []string{"=3", "age", "age>old", `name="open`} {
		_, err := ParseExpr(bad)
		assert.ErrorIs(t, err, dfs.ErrInvalidArgument, bad)
	}
}
