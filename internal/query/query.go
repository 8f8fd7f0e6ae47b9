// Package query derives the filtered, sorted display list of inventory items.
// Everything here is a pure function of its inputs.
package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/erazemk/sinalizacao/internal/model"
)

// Direction is a sort direction.
type Direction string

// Directions.
const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort selects the key and direction of a view.
type Sort struct {
	Key       string
	Direction Direction
}

var (
	// ErrUnknownKey is returned for a sort key that names no item field.
	ErrUnknownKey = errors.New("unknown sort key")
	// ErrUnknownDirection is returned for a direction other than asc/desc.
	ErrUnknownDirection = errors.New("unknown sort direction")
)

type keyKind int

const (
	kindString keyKind = iota
	kindNumber
	kindTime
)

type sortKey struct {
	kind keyKind
	str  func(model.Item) string
	num  func(model.Item) int
	time func(model.Item) int64
}

func stringKey(f func(model.Item) string) sortKey { return sortKey{kind: kindString, str: f} }
func numberKey(f func(model.Item) int) sortKey    { return sortKey{kind: kindNumber, num: f} }

var keys = map[string]sortKey{
	"id":             stringKey(func(i model.Item) string { return i.ID }),
	"code":           stringKey(func(i model.Item) string { return i.Code }),
	"description":    stringKey(func(i model.Item) string { return i.Description }),
	"classification": stringKey(func(i model.Item) string { return i.Classification }),
	"function":       stringKey(func(i model.Item) string { return i.Function }),
	"color":          stringKey(func(i model.Item) string { return i.Color }),
	"shape":          stringKey(func(i model.Item) string { return i.Shape }),
	"size":           stringKey(func(i model.Item) string { return i.Size }),
	"extras":         stringKey(func(i model.Item) string { return i.Extras }),
	"observations":   stringKey(func(i model.Item) string { return i.Observations }),
	"created_by":     stringKey(func(i model.Item) string { return i.CreatedBy }),
	"updated_by":     stringKey(func(i model.Item) string { return i.UpdatedBy }),
	"entry":          numberKey(func(i model.Item) int { return i.Entry }),
	"exit":           numberKey(func(i model.Item) int { return i.Exit }),
	"min_stock":      numberKey(func(i model.Item) int { return i.MinStock }),
	"max_stock":      numberKey(func(i model.Item) int { return i.MaxStock }),
	"balance":        numberKey(func(i model.Item) int { return i.Balance() }),
	"updated_at":     {kind: kindTime, time: func(i model.Item) int64 { return i.UpdatedAt.UnixNano() }},
}

// aliases maps alternate spellings onto canonical keys.
var aliases = map[string]string{
	"saldo":     "balance",
	"minStock":  "min_stock",
	"maxStock":  "max_stock",
	"createdBy": "created_by",
	"updatedBy": "updated_by",
	"updatedAt": "updated_at",
}

func lookup(key string) (sortKey, bool) {
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	k, ok := keys[key]
	return k, ok
}

// View returns the items whose code or description contains term
// (case-insensitively), ordered by s. A nil s, or one with an empty key,
// keeps the filtered input order. Sorting is stable. The input slice is
// never modified.
func View(items []model.Item, term string, s *Sort) ([]model.Item, error) {
	var cmpFn func(a, b model.Item) int
	if s != nil && s.Key != "" {
		var err error
		if cmpFn, err = comparator(*s); err != nil {
			return nil, err
		}
	}

	result := Filter(items, term)
	if cmpFn != nil {
		slices.SortStableFunc(result, cmpFn)
	}
	return result, nil
}

// Filter returns a copy of the items whose code or description contains
// term, ignoring case. An empty term matches everything.
func Filter(items []model.Item, term string) []model.Item {
	result := make([]model.Item, 0, len(items))
	if term == "" {
		return append(result, items...)
	}

	fold := cases.Fold()
	needle := fold.String(term)
	for _, it := range items {
		if strings.Contains(fold.String(it.Description), needle) || strings.Contains(fold.String(it.Code), needle) {
			result = append(result, it)
		}
	}
	return result
}

func comparator(s Sort) (func(a, b model.Item) int, error) {
	k, ok := lookup(s.Key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, s.Key)
	}

	sign := 1
	switch s.Direction {
	case Ascending, "":
	case Descending:
		sign = -1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, s.Direction)
	}

	switch k.kind {
	case kindNumber:
		return func(a, b model.Item) int { return sign * cmp.Compare(k.num(a), k.num(b)) }, nil
	case kindTime:
		return func(a, b model.Item) int { return sign * cmp.Compare(k.time(a), k.time(b)) }, nil
	default:
		fold := cases.Fold()
		return func(a, b model.Item) int {
			return sign * strings.Compare(fold.String(k.str(a)), fold.String(k.str(b)))
		}, nil
	}
}
