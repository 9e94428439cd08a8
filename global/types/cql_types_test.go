package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUdtType(t *testing.T) {
	udt := NewUdtType("app", "address", []UdtField{
		{Name: "street", Type: TypeText},
		{Name: "zip", Type: TypeInt},
	})

	assert.Equal(t, UdtName("address"), udt.Name())
	assert.Equal(t, Keyspace("app"), udt.Keyspace())
	assert.Equal(t, "address", udt.String())
	require.NotNil(t, udt.DataType())
	require.Len(t, udt.Fields(), 2)

	zip, ok := udt.Field("zip")
	require.True(t, ok)
	assert.Equal(t, "int", zip.Type.String())

	_, ok = udt.Field("missing")
	assert.False(t, ok)
}

func TestNewUdtTypeEmpty(t *testing.T) {
	udt := NewUdtType("app", "empty", nil)
	assert.Equal(t, UdtName("empty"), udt.Name())
	assert.Empty(t, udt.Fields())
}

func TestFrozenType(t *testing.T) {
	udt := NewUdtType("app", "address", []UdtField{{Name: "street", Type: TypeText}})
	frozen := NewFrozenType(udt)

	assert.Equal(t, "frozen<address>", frozen.String())
	assert.True(t, frozen.IsAnyFrozen())
	assert.False(t, frozen.IsCollection())
	require.NotNil(t, frozen.DataType())

	frozenList := NewFrozenType(NewListType(TypeInt))
	assert.Equal(t, "frozen<list<int>>", frozenList.String())
	assert.True(t, frozenList.IsCollection())
}

func TestCollectionTypeStrings(t *testing.T) {
	assert.Equal(t, "list<bigint>", NewListType(TypeBigint).String())
	assert.Equal(t, "set<uuid>", NewSetType(TypeUuid).String())
	assert.Equal(t, "map<text, frozen<set<int>>>",
		NewMapType(TypeText, NewFrozenType(NewSetType(TypeInt))).String())
	assert.Equal(t, "tuple<int, text>", NewTupleType(TypeInt, TypeText).String())
}
