package search

import (
	"strings"

	"github.com/deicod/ermsearch/orm/dsl"
)

// TypeTag is the search-level classification of a column type.
type TypeTag string

const (
	TypeInteger   TypeTag = "integer"
	TypeFloat     TypeTag = "float"
	TypeDecimal   TypeTag = "decimal"
	TypeString    TypeTag = "string"
	TypeText      TypeTag = "text"
	TypeBinary    TypeTag = "binary"
	TypeDate      TypeTag = "date"
	TypeDateTime  TypeTag = "datetime"
	TypeTimestamp TypeTag = "timestamp"
	TypeTime      TypeTag = "time"
	TypeBoolean   TypeTag = "boolean"
)

var typeTags = []TypeTag{
	TypeInteger, TypeFloat, TypeDecimal,
	TypeString, TypeText, TypeBinary,
	TypeDate,
	TypeDateTime, TypeTimestamp, TypeTime,
	TypeBoolean,
}

// TypeSet is a set of type tags.
type TypeSet uint16

func tagBit(tag TypeTag) TypeSet {
	for i, t := range typeTags {
		if t == tag {
			return 1 << i
		}
	}
	return 0
}

// Types builds a set from the given tags. Unknown tags are ignored.
func Types(tags ...TypeTag) TypeSet {
	var set TypeSet
	for _, tag := range tags {
		set |= tagBit(tag)
	}
	return set
}

var (
	Numbers  = Types(TypeInteger, TypeFloat, TypeDecimal)
	Strings  = Types(TypeString, TypeText, TypeBinary)
	Dates    = Types(TypeDate)
	Times    = Types(TypeDateTime, TypeTimestamp, TypeTime)
	Booleans = Types(TypeBoolean)
	AllTypes = Numbers | Strings | Dates | Times | Booleans
)

func (s TypeSet) Has(tag TypeTag) bool {
	bit := tagBit(tag)
	return bit != 0 && s&bit != 0
}

func (s TypeSet) Without(other TypeSet) TypeSet { return s &^ other }

// Tags lists the members in declaration order.
func (s TypeSet) Tags() []TypeTag {
	var out []TypeTag
	for _, tag := range typeTags {
		if s.Has(tag) {
			out = append(out, tag)
		}
	}
	return out
}

func (s TypeSet) String() string {
	tags := s.Tags()
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = string(tag)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var fieldTags = map[dsl.FieldType]TypeTag{
	dsl.TypeText:            TypeText,
	dsl.TypeVarChar:         TypeString,
	dsl.TypeChar:            TypeString,
	dsl.TypeUUID:            TypeString,
	dsl.TypeBoolean:         TypeBoolean,
	dsl.TypeSmallInt:        TypeInteger,
	dsl.TypeInteger:         TypeInteger,
	dsl.TypeBigInt:          TypeInteger,
	dsl.TypeSerial:          TypeInteger,
	dsl.TypeBigSerial:       TypeInteger,
	dsl.TypeDecimal:         TypeDecimal,
	dsl.TypeNumeric:         TypeDecimal,
	dsl.TypeMoney:           TypeDecimal,
	dsl.TypeReal:            TypeFloat,
	dsl.TypeDoublePrecision: TypeFloat,
	dsl.TypeBytea:           TypeBinary,
	dsl.TypeDate:            TypeDate,
	dsl.TypeTime:            TypeTime,
	dsl.TypeTimestamp:       TypeDateTime,
	dsl.TypeTimestampTZ:     TypeTimestamp,
}

// TagFor maps a schema column type onto its type tag.
func TagFor(t dsl.FieldType) (TypeTag, bool) {
	tag, ok := fieldTags[t]
	return tag, ok
}
