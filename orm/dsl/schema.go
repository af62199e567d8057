package dsl

// Schema is embedded by entity definitions. It supplies empty edge and policy lists so
// definitions only declare what they use.
type Schema struct{}

func (Schema) Edges() []Edge      { return nil }
func (Schema) Policies() []Rule   { return nil }
func (Schema) Table() string      { return "" }
func (Schema) PrimaryKey() string { return "" }

// Definition is implemented by entity schemas.
type Definition interface {
	Fields() []Field
	Edges() []Edge
	Policies() []Rule
}

type FieldType string

const (
	TypeText            FieldType = "text"
	TypeVarChar         FieldType = "varchar"
	TypeChar            FieldType = "char"
	TypeUUID            FieldType = "uuid"
	TypeBoolean         FieldType = "boolean"
	TypeSmallInt        FieldType = "smallint"
	TypeInteger         FieldType = "integer"
	TypeBigInt          FieldType = "bigint"
	TypeSerial          FieldType = "serial"
	TypeBigSerial       FieldType = "bigserial"
	TypeDecimal         FieldType = "decimal"
	TypeNumeric         FieldType = "numeric"
	TypeMoney           FieldType = "money"
	TypeReal            FieldType = "real"
	TypeDoublePrecision FieldType = "double precision"
	TypeBytea           FieldType = "bytea"
	TypeDate            FieldType = "date"
	TypeTime            FieldType = "time"
	TypeTimestamp       FieldType = "timestamp"
	TypeTimestampTZ     FieldType = "timestamptz"

	TypeString FieldType = TypeVarChar
	TypeInt    FieldType = TypeInteger
	TypeFloat  FieldType = TypeDoublePrecision
	TypeBool   FieldType = TypeBoolean
	TypeBytes  FieldType = TypeBytea
)

type Field struct {
	Name        string
	Column      string
	Type        FieldType
	IsPrimary   bool
	Nullable    bool
	Annotations map[string]any
}

func (f Field) Primary() Field               { f.IsPrimary = true; return f }
func (f Field) Optional() Field              { f.Nullable = true; return f }
func (f Field) ColumnName(name string) Field { f.Column = name; return f }

// Decimal precision and scale are kept as annotations; search casting ignores them.
func (f Field) annotate(key string, val int) Field {
	if val < 0 || (val == 0 && key != "scale") {
		return f
	}
	if f.Annotations == nil {
		f.Annotations = map[string]any{}
	}
	f.Annotations[key] = val
	return f
}

func field(name string, typ FieldType) Field { return Field{Name: name, Type: typ} }

func Text(name string) Field        { return field(name, TypeText) }
func Boolean(name string) Field     { return field(name, TypeBoolean) }
func Integer(name string) Field     { return field(name, TypeInteger) }
func Serial(name string) Field      { return field(name, TypeSerial) }
func BigSerial(name string) Field   { return field(name, TypeBigSerial) }
func Date(name string) Field        { return field(name, TypeDate) }
func Time(name string) Field        { return field(name, TypeTime) }
func Timestamp(name string) Field   { return field(name, TypeTimestamp) }
func TimestampTZ(name string) Field { return field(name, TypeTimestampTZ) }
func Float(name string) Field       { return field(name, TypeDoublePrecision) }
func Bool(name string) Field        { return Boolean(name) }
func Bytes(name string) Field       { return field(name, TypeBytea) }

// String is a varchar(255).
func String(name string) Field { return field(name, TypeVarChar).annotate("length", 255) }

func Decimal(name string, precision, scale int) Field {
	return field(name, TypeDecimal).annotate("precision", precision).annotate("scale", scale)
}
