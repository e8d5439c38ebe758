// Package relation infers candidate join edges between uploaded tables from
// column-naming conventions. Edges are advisory: a match means two key
// columns share a name pattern, not that a real foreign key exists.
package relation

import (
	"strings"

	"github.com/querydeck/querydeck/internal/model"
)

// DefaultSynonyms are the domain column names treated as join synonyms: a
// key column ending in "_<synonym>" matches a key column named exactly
// "<synonym>". Payroll extracts routinely prefix the shared company and
// employee keys with the source system name.
var DefaultSynonyms = []string{"company_code", "employee_id"}

// Inferencer computes join edges over a catalog snapshot. The zero value
// uses DefaultSynonyms.
type Inferencer struct {
	Synonyms []string
}

// Infer emits one edge per matching key-column pair across every unordered
// pair of distinct tables, in catalog iteration order. Duplicate edges
// between the same table pair are kept; consumers take the first one found.
// Absence of evidence yields an empty edge set, never an error.
func (inf Inferencer) Infer(tables []model.TableDescriptor) []model.Relationship {
	synonyms := inf.Synonyms
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}

	var edges []model.Relationship
	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			t1, t2 := tables[i], tables[j]
			for _, k1 := range t1.KeyColumns {
				for _, k2 := range t2.KeyColumns {
					if keysMatch(k1, k2, synonyms) {
						edges = append(edges, model.Relationship{
							FromTable:  t1.SQLName,
							FromColumn: k1,
							ToTable:    t2.SQLName,
							ToColumn:   k2,
						})
					}
				}
			}
		}
	}
	return edges
}

// Infer runs inference with the default synonym set.
func Infer(tables []model.TableDescriptor) []model.Relationship {
	return Inferencer{}.Infer(tables)
}

// Between returns the first edge directly connecting tables a and b, in
// either direction, oriented so that a's column comes first. The boolean is
// false when no direct edge exists.
func Between(edges []model.Relationship, a, b string) (model.Relationship, bool) {
	for _, e := range edges {
		switch {
		case e.FromTable == a && e.ToTable == b:
			return e, true
		case e.FromTable == b && e.ToTable == a:
			return model.Relationship{
				FromTable:  e.ToTable,
				FromColumn: e.ToColumn,
				ToTable:    e.FromTable,
				ToColumn:   e.FromColumn,
			}, true
		}
	}
	return model.Relationship{}, false
}

// keysMatch applies the three match rules: exact name, _id/_code suffix
// swap, and domain synonym.
func keysMatch(k1, k2 string, synonyms []string) bool {
	a, b := strings.ToLower(k1), strings.ToLower(k2)
	if a == b {
		return true
	}
	if swapIDCode(a) == b || swapIDCode(b) == a {
		return true
	}
	for _, syn := range synonyms {
		if (b == syn && strings.HasSuffix(a, "_"+syn)) ||
			(a == syn && strings.HasSuffix(b, "_"+syn)) {
			return true
		}
	}
	return false
}

// swapIDCode rewrites an "_id" suffix to "_code" and vice versa. Names
// without either suffix are returned unchanged.
func swapIDCode(name string) string {
	if strings.HasSuffix(name, "_id") {
		return strings.TrimSuffix(name, "_id") + "_code"
	}
	if strings.HasSuffix(name, "_code") {
		return strings.TrimSuffix(name, "_code") + "_id"
	}
	return name
}
