package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns maps the sort keys clients may send to table columns. Both the
// snake_case column name and the storefront's camelCase spelling are accepted.
type sortColumns map[string]string

func newSortColumns(columns ...string) sortColumns {
	out := make(sortColumns, len(columns)*2)
	for _, col := range columns {
		out[col] = col
		out[camelCase(col)] = col
	}
	return out
}

var (
	productSort = newSortColumns("id", "created_at", "updated_at", "title", "slug", "price", "stock")
	orderSort   = newSortColumns("id", "created_at", "updated_at", "order_number", "status", "payment_status", "final_price")
)

// orderBy builds a quoted ORDER BY term. Unknown keys fall back to
// created_at and any direction other than asc sorts descending, so raw input
// never reaches the SQL text.
func orderBy(allowed sortColumns, key, dir string) clause.OrderByColumn {
	col, ok := allowed[strings.TrimSpace(key)]
	if !ok {
		col = "created_at"
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: col},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}

func camelCase(col string) string {
	head, rest, _ := strings.Cut(col, "_")
	var b strings.Builder
	b.WriteString(head)
	for part := range strings.SplitSeq(rest, "_") {
		if part != "" {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return b.String()
}
