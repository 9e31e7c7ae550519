package index

import (
	"cmp"
	"math"
	"time"

	"github.com/relindex/relindex/store"
)

// EndOfTime is the sentinel end-version value meaning "current" for a
// system-versioned row, per spec.md's resolution of the system-version
// open question (second-granularity int64, fractional precision
// dropped).
const EndOfTime int64 = math.MaxInt64

// compareTyped compares two column values of the given type. nil (SQL
// NULL) sorts before any non-null value; direction and nulls-last
// adjustments are applied by the caller, not here.
func compareTyped(a, b any, t store.ColumnType) int {
	an, bn := a == nil, b == nil
	if an && bn {
		return 0
	}
	if an {
		return -1
	}
	if bn {
		return 1
	}
	switch t {
	case store.TypeInt64:
		return cmp.Compare(a.(int64), b.(int64))
	case store.TypeFloat64:
		return cmp.Compare(a.(float64), b.(float64))
	case store.TypeString:
		return cmp.Compare(a.(string), b.(string))
	case store.TypeBool:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case store.TypeTimestamp:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		panic(newInvariantError("unknown column type %v", t))
	}
}

// compareColumnsOnly applies the per-column ordering rule (spec.md 4.1)
// across every key column of d, against another row's values. It never
// consults the system-version tie-break or the row-id tie-break.
func (d *Descriptor) compareColumnsOnly(a, b *store.Row) int {
	for j, colIdx := range d.ColumnIndexes {
		av, bv := a.Values[colIdx], b.Values[colIdx]
		hasNull := av == nil || bv == nil
		sign := compareTyped(av, bv, d.ColumnTypes[j])
		if sign == 0 {
			continue
		}
		if d.isSimpleOrder {
			return sign
		}
		if d.Descending[j] && !hasNull {
			sign = -sign
		}
		if d.NullsLast[j] && hasNull {
			sign = -sign
		}
		return sign
	}
	return 0
}

// compareColumnsPrefix is compareColumnsOnly restricted to the leading
// fieldCount key columns, compared against an explicit key slice given
// in index column order (used by range-scan boundary search).
func (d *Descriptor) compareColumnsPrefix(row *store.Row, key []any, fieldCount int) int {
	for j := 0; j < fieldCount; j++ {
		colIdx := d.ColumnIndexes[j]
		av, bv := row.Values[colIdx], key[j]
		hasNull := av == nil || bv == nil
		sign := compareTyped(av, bv, d.ColumnTypes[j])
		if sign == 0 {
			continue
		}
		if d.isSimpleOrder {
			return sign
		}
		if d.Descending[j] && !hasNull {
			sign = -sign
		}
		if d.NullsLast[j] && hasNull {
			sign = -sign
		}
		return sign
	}
	return 0
}

func compareSystemVersion(a, b *store.Row, col int) int {
	return cmp.Compare(a.Values[col].(int64), b.Values[col].(int64))
}

// hasNullKey reports whether any of d's key columns is null in row.
func (d *Descriptor) hasNullKey(row *store.Row) bool {
	for _, colIdx := range d.ColumnIndexes {
		if row.Values[colIdx] == nil {
			return true
		}
	}
	return false
}

// CompareRows orders two rows for tree placement. Column values decide
// first; a system-versioned index then tie-breaks on the end-version
// column; useRowID, when true, tie-breaks any remaining equality by row
// position, giving every row a total order even across duplicate keys.
func (d *Descriptor) CompareRows(a, b *store.Row, useRowID bool) int {
	if sign := d.compareColumnsOnly(a, b); sign != 0 {
		return sign
	}
	if d.SystemVersionColumn != nil {
		if sign := compareSystemVersion(a, b, *d.SystemVersionColumn); sign != 0 {
			return sign
		}
		// Equal end-versions (including the common case of both being
		// "current", EndOfTime) fall back to the row-id tie-break below.
	}
	if useRowID {
		return cmp.Compare(a.Position, b.Position)
	}
	return 0
}
