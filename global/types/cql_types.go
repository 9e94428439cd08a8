package types

import (
	"fmt"
	"strings"

	"github.com/datastax/go-cassandra-native-protocol/datatype"
)

// CqlDataType is the CQL-level type of a mapped column or UDT field.
type CqlDataType interface {
	// String returns the canonical CQL string representation of the type.
	String() string

	// DataType returns the native-protocol representation of the type.
	DataType() datatype.DataType

	// isCqlDataType is an unexported marker method to ensure only types
	// from this package can implement the interface.
	isCqlDataType()

	IsCollection() bool
	IsAnyFrozen() bool
	Code() CqlTypeCode
}

func IsScalar(c CqlDataType) bool {
	return !c.IsCollection() && c.Code() != UDT && c.Code() != TUPLE
}

type CqlTypeCode int

const (
	// Scalars
	ASCII CqlTypeCode = iota
	VARCHAR
	BIGINT
	BLOB
	BOOLEAN
	COUNTER
	DATE
	DECIMAL
	DOUBLE
	FLOAT
	INET
	INT
	SMALLINT
	TEXT // Also used for VARCHAR
	TIME
	TIMESTAMP
	TIMEUUID
	TINYINT
	UUID
	VARINT
	// Collections
	LIST
	SET
	MAP
	// Structured
	UDT
	TUPLE
	// Other
	FROZEN
)

// ScalarType represents a primitive, single-value Cassandra type.
type ScalarType struct {
	code CqlTypeCode
	dt   datatype.DataType
	name string
}

func (s ScalarType) Code() CqlTypeCode           { return s.code }
func (s ScalarType) DataType() datatype.DataType { return s.dt }
func (s ScalarType) String() string              { return s.name }
func (s ScalarType) IsCollection() bool          { return false }
func (s ScalarType) IsAnyFrozen() bool           { return false }
func (s ScalarType) isCqlDataType()              {}

// Pre-defined constants for the scalar types for convenience.
var (
	TypeAscii     CqlDataType = ScalarType{name: "ascii", code: ASCII, dt: datatype.Varchar}
	TypeVarchar   CqlDataType = ScalarType{name: "varchar", code: VARCHAR, dt: datatype.Varchar}
	TypeBigint    CqlDataType = ScalarType{name: "bigint", code: BIGINT, dt: datatype.Bigint}
	TypeBlob      CqlDataType = ScalarType{name: "blob", code: BLOB, dt: datatype.Blob}
	TypeBoolean   CqlDataType = ScalarType{name: "boolean", code: BOOLEAN, dt: datatype.Boolean}
	TypeCounter   CqlDataType = ScalarType{name: "counter", code: COUNTER, dt: datatype.Counter}
	TypeDate      CqlDataType = ScalarType{name: "date", code: DATE, dt: datatype.Date}
	TypeDecimal   CqlDataType = ScalarType{name: "decimal", code: DECIMAL, dt: datatype.Decimal}
	TypeDouble    CqlDataType = ScalarType{name: "double", code: DOUBLE, dt: datatype.Double}
	TypeFloat     CqlDataType = ScalarType{name: "float", code: FLOAT, dt: datatype.Float}
	TypeInet      CqlDataType = ScalarType{name: "inet", code: INET, dt: datatype.Inet}
	TypeInt       CqlDataType = ScalarType{name: "int", code: INT, dt: datatype.Int}
	TypeSmallint  CqlDataType = ScalarType{name: "smallint", code: SMALLINT, dt: datatype.Smallint}
	TypeText      CqlDataType = ScalarType{name: "text", code: TEXT, dt: datatype.Varchar}
	TypeTime      CqlDataType = ScalarType{name: "time", code: TIME, dt: datatype.Time}
	TypeTimestamp CqlDataType = ScalarType{name: "timestamp", code: TIMESTAMP, dt: datatype.Timestamp}
	TypeTimeuuid  CqlDataType = ScalarType{name: "timeuuid", code: TIMEUUID, dt: datatype.Timeuuid}
	TypeTinyint   CqlDataType = ScalarType{name: "tinyint", code: TINYINT, dt: datatype.Tinyint}
	TypeUuid      CqlDataType = ScalarType{name: "uuid", code: UUID, dt: datatype.Uuid}
	TypeVarint    CqlDataType = ScalarType{name: "varint", code: VARINT, dt: datatype.Varint}
)

// ListType represents a Cassandra list<elementType>.
type ListType struct {
	elementType CqlDataType
	dt          datatype.DataType
}

func NewListType(elementType CqlDataType) *ListType {
	return &ListType{elementType: elementType, dt: datatype.NewListType(elementType.DataType())}
}

func (l ListType) Code() CqlTypeCode           { return LIST }
func (l ListType) ElementType() CqlDataType    { return l.elementType }
func (l ListType) DataType() datatype.DataType { return l.dt }
func (l ListType) IsCollection() bool          { return true }
func (l ListType) IsAnyFrozen() bool           { return l.elementType.IsAnyFrozen() }
func (l ListType) isCqlDataType()              {}

func (l ListType) String() string {
	return fmt.Sprintf("list<%s>", l.elementType.String())
}

// SetType represents a Cassandra set<elementType>.
type SetType struct {
	elementType CqlDataType
	dt          datatype.DataType
}

func NewSetType(elementType CqlDataType) *SetType {
	return &SetType{elementType: elementType, dt: datatype.NewSetType(elementType.DataType())}
}

func (s SetType) Code() CqlTypeCode           { return SET }
func (s SetType) ElementType() CqlDataType    { return s.elementType }
func (s SetType) DataType() datatype.DataType { return s.dt }
func (s SetType) IsCollection() bool          { return true }
func (s SetType) IsAnyFrozen() bool           { return s.elementType.IsAnyFrozen() }
func (s SetType) isCqlDataType()              {}

func (s SetType) String() string {
	return fmt.Sprintf("set<%s>", s.elementType.String())
}

// MapType represents a Cassandra map<keyType, valueType>.
type MapType struct {
	keyType   CqlDataType
	valueType CqlDataType
	dt        datatype.DataType
}

func NewMapType(keyType CqlDataType, valueType CqlDataType) *MapType {
	return &MapType{keyType: keyType, valueType: valueType, dt: datatype.NewMapType(keyType.DataType(), valueType.DataType())}
}

func (m MapType) Code() CqlTypeCode           { return MAP }
func (m MapType) KeyType() CqlDataType        { return m.keyType }
func (m MapType) ValueType() CqlDataType      { return m.valueType }
func (m MapType) DataType() datatype.DataType { return m.dt }
func (m MapType) IsCollection() bool          { return true }
func (m MapType) isCqlDataType()              {}

func (m MapType) IsAnyFrozen() bool {
	return m.keyType.IsAnyFrozen() || m.valueType.IsAnyFrozen()
}

func (m MapType) String() string {
	return fmt.Sprintf("map<%s, %s>", m.keyType.String(), m.valueType.String())
}

// UdtField is one named, typed field of a user-defined type.
type UdtField struct {
	Name ColumnName
	Type CqlDataType
}

// UdtType represents a Cassandra user-defined type. Field order is the
// declaration order of the type and is significant for DDL generation.
type UdtType struct {
	keyspace Keyspace
	name     UdtName
	fields   []UdtField
	dt       datatype.DataType
}

func NewUdtType(keyspace Keyspace, name UdtName, fields []UdtField) *UdtType {
	var fieldNames []string
	var fieldTypes []datatype.DataType
	for _, f := range fields {
		fieldNames = append(fieldNames, string(f.Name))
		fieldTypes = append(fieldTypes, f.Type.DataType())
	}
	// names and types are built in lockstep; the constructor only rejects
	// mismatched slice lengths
	dt, _ := datatype.NewUserDefinedType(string(keyspace), string(name), fieldNames, fieldTypes)
	return &UdtType{keyspace: keyspace, name: name, fields: fields, dt: dt}
}

func (u UdtType) Code() CqlTypeCode           { return UDT }
func (u UdtType) Keyspace() Keyspace          { return u.keyspace }
func (u UdtType) Name() UdtName               { return u.name }
func (u UdtType) Fields() []UdtField          { return u.fields }
func (u UdtType) DataType() datatype.DataType { return u.dt }
func (u UdtType) IsCollection() bool          { return false }
func (u UdtType) isCqlDataType()              {}

func (u UdtType) IsAnyFrozen() bool {
	for _, f := range u.fields {
		if f.Type.IsAnyFrozen() {
			return true
		}
	}
	return false
}

func (u UdtType) Field(name ColumnName) (UdtField, bool) {
	for _, f := range u.fields {
		if f.Name == name {
			return f, true
		}
	}
	return UdtField{}, false
}

func (u UdtType) String() string {
	return string(u.name)
}

// TupleType represents a Cassandra tuple<...>.
type TupleType struct {
	elementTypes []CqlDataType
	dt           datatype.DataType
}

func NewTupleType(elementTypes ...CqlDataType) *TupleType {
	var dts []datatype.DataType
	for _, et := range elementTypes {
		dts = append(dts, et.DataType())
	}
	return &TupleType{elementTypes: elementTypes, dt: datatype.NewTupleType(dts...)}
}

func (t TupleType) Code() CqlTypeCode           { return TUPLE }
func (t TupleType) ElementTypes() []CqlDataType { return t.elementTypes }
func (t TupleType) DataType() datatype.DataType { return t.dt }
func (t TupleType) IsCollection() bool          { return false }
func (t TupleType) isCqlDataType()              {}

func (t TupleType) IsAnyFrozen() bool {
	for _, et := range t.elementTypes {
		if et.IsAnyFrozen() {
			return true
		}
	}
	return false
}

func (t TupleType) String() string {
	var parts []string
	for _, et := range t.elementTypes {
		parts = append(parts, et.String())
	}
	return fmt.Sprintf("tuple<%s>", strings.Join(parts, ", "))
}

// FrozenType wraps a collection or UDT so it is serialized as a single cell.
type FrozenType struct {
	innerType CqlDataType
}

func NewFrozenType(inner CqlDataType) *FrozenType {
	return &FrozenType{innerType: inner}
}

func (f FrozenType) Code() CqlTypeCode           { return FROZEN }
func (f FrozenType) InnerType() CqlDataType      { return f.innerType }
func (f FrozenType) IsCollection() bool          { return f.innerType.IsCollection() }
func (f FrozenType) IsAnyFrozen() bool           { return true }
func (f FrozenType) DataType() datatype.DataType { return f.innerType.DataType() }
func (f FrozenType) isCqlDataType()              {}

func (f FrozenType) String() string {
	return fmt.Sprintf("frozen<%s>", f.innerType.String())
}
