package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xenking/catalog-service/internal/domain/product"
)

// whereClause lowers a product predicate to a parameterised SQL boolean
// expression over the products table. Placeholders start at $1.
func whereClause(pred product.Predicate) (string, []any, error) {
	var b clauseBuilder
	sql, err := b.build(pred)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

type clauseBuilder struct {
	args []any
}

func (b *clauseBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *clauseBuilder) build(p product.Predicate) (string, error) {
	switch p.Op {
	case product.OpTrue:
		return "TRUE", nil
	case product.OpAnd:
		parts := make([]string, 0, len(p.Terms))
		for _, t := range p.Terms {
			sql, err := b.build(t)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+sql+")")
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return strings.Join(parts, " AND "), nil
	case product.OpActive:
		return "active", nil
	case product.OpNameContains:
		// strpos keeps % and _ in the search text literal.
		return "strpos(lower(name), lower(" + b.arg(p.Text) + ")) > 0", nil
	case product.OpPriceAtLeast:
		return "price >= " + b.arg(p.Price), nil
	case product.OpPriceAtMost:
		return "price <= " + b.arg(p.Price), nil
	case product.OpCategoryEquals:
		return "category_id = " + b.arg(p.CategoryID), nil
	default:
		return "", fmt.Errorf("unsupported predicate op %d", p.Op)
	}
}
