package search

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

var trueValues = map[string]bool{"1": true, "t": true, "T": true, "true": true, "TRUE": true}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Caster converts raw parameter values into column typed values. Times are interpreted in
// Location, which defaults to UTC.
type Caster struct {
	Location *time.Location
}

func (c Caster) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Cast converts raw for a column of type tag. Lists of lists, lists of date-like values and lists
// for non date/time types are cast element-wise; any other list for a date or time type is a
// single multi-component value.
func (c Caster) Cast(tag TypeTag, raw any) (any, error) {
	if !AllTypes.Has(tag) {
		return nil, &TypeCastError{Type: tag}
	}
	if isList(raw) {
		items := listOf(raw)
		if allLists(items) || dateLike(items) || !(Dates | Times).Has(tag) {
			out := make([]any, len(items))
			for i, item := range items {
				v, err := c.Cast(tag, item)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		}
	}
	return c.castOne(tag, raw)
}

func allLists(items []any) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !isList(item) {
			return false
		}
	}
	return true
}

// dateLike reports whether the list holds complete dates rather than date components. Strings
// that are not plain integers count as complete dates.
func dateLike(items []any) bool {
	if len(items) == 0 {
		return false
	}
	switch first := items[0].(type) {
	case time.Time:
		return true
	case string:
		s := strings.TrimSpace(first)
		if s == "" {
			return false
		}
		_, err := strconv.Atoi(s)
		return err != nil
	}
	return false
}

func (c Caster) castOne(tag TypeTag, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch {
	case Strings.Has(tag):
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		default:
			return fmt.Sprint(v), nil
		}
	case Dates.Has(tag):
		return c.castDate(raw), nil
	case Times.Has(tag):
		return c.castTime(raw), nil
	case Booleans.Has(tag):
		return castBoolean(raw), nil
	case tag == TypeInteger:
		return castInteger(raw), nil
	case tag == TypeFloat:
		return castFloat(raw), nil
	case tag == TypeDecimal:
		return castDecimal(raw), nil
	}
	return nil, &TypeCastError{Type: tag}
}

func (c Caster) castDate(raw any) any {
	loc := c.location()
	switch v := raw.(type) {
	case time.Time:
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, v.Location())
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				y, m, d := t.Date()
				return time.Date(y, m, d, 0, 0, 0, 0, loc)
			}
		}
		return nil
	}
	parts, ok := components(raw, 3, []int{-1, 1, 1})
	if !ok {
		return nil
	}
	return composeTime(parts[0], parts[1], parts[2], 0, 0, 0, loc)
}

func (c Caster) castTime(raw any) any {
	loc := c.location()
	switch v := raw.(type) {
	case time.Time:
		return v.In(loc)
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc)
			}
		}
		return nil
	}
	parts, ok := components(raw, 6, []int{-1, 1, 1, 0, 0, 0})
	if !ok {
		return nil
	}
	return composeTime(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], loc)
}

// components reads up to n integer components from raw. A default of -1 marks a required part.
func components(raw any, n int, defaults []int) ([]int, bool) {
	items := listOf(raw)
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = defaults[i]
		if i < len(items) && items[i] != nil {
			if s, isString := items[i].(string); isString && strings.TrimSpace(s) == "" {
				if defaults[i] < 0 {
					return nil, false
				}
				continue
			}
			v, ok := toInt(items[i])
			if !ok {
				return nil, false
			}
			out[i] = v
			continue
		}
		if defaults[i] < 0 {
			return nil, false
		}
	}
	return out, true
}

// composeTime builds a time and rejects combinations time.Date would normalise, such as
// February 30th.
func composeTime(y, mo, d, h, mi, s int, loc *time.Location) any {
	if mo < 1 || mo > 12 || d < 1 || h < 0 || h > 23 || mi < 0 || mi > 59 || s < 0 || s > 59 {
		return nil
	}
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, loc)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return nil
	}
	return t
}

func castBoolean(raw any) any {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return trueValues[v]
	}
	n, ok := toInt(raw)
	return ok && n == 1
}

func castInteger(raw any) any {
	if !Present(raw) {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case float32, float64:
		if n, ok := truncInt64(reflect.ValueOf(v).Float()); ok {
			return n
		}
		return nil
	case *apd.Decimal:
		n, err := v.Int64()
		if err != nil {
			return nil
		}
		return n
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if n, ok := truncInt64(f); ok {
				return n
			}
		}
		return nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
	}
	return nil
}

// truncInt64 truncates f toward zero, failing when the result does not fit an int64.
func truncInt64(f float64) (int64, bool) {
	t := math.Trunc(f)
	if math.IsNaN(t) || t < -(1<<63) || t >= 1<<63 {
		return 0, false
	}
	return int64(t), true
}

func castFloat(raw any) any {
	if !Present(raw) {
		return nil
	}
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return f
	case *apd.Decimal:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return f
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	}
	return nil
}

func castDecimal(raw any) any {
	if !Present(raw) {
		return nil
	}
	switch v := raw.(type) {
	case *apd.Decimal:
		return v
	case apd.Decimal:
		return &v
	case string:
		d, _, err := apd.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return d
	case float32, float64:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(reflect.ValueOf(v).Float()); err != nil {
			return nil
		}
		return d
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return apd.New(rv.Int(), 0)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return apd.New(int64(rv.Uint()), 0)
	}
	d, _, err := apd.NewFromString(fmt.Sprint(raw))
	if err != nil {
		return nil
	}
	return d
}

// toInt reads a single integer component.
func toInt(v any) (int, bool) {
	switch n := castInteger(v).(type) {
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
