package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/salesdw/salesdw/internal/tabular"
)

// Report names, also the CSV base names under the insights directory.
const (
	RevenuePerCategoryReport = "total_revenue_per_category"
	TopSellingProductsReport = "top_selling_products"
	SalesTrendReport         = "sales_trends"
)

var (
	// ErrInvalidLimit is returned when a report limit is not positive.
	ErrInvalidLimit = errors.New("report limit must be greater than zero")

	// ErrQueryFailed wraps report query failures.
	ErrQueryFailed = errors.New("insight query failed")
)

type (
	// InsightStore runs analytical reports over the loaded star schema.
	InsightStore struct {
		conn *Connection
	}

	// CategoryRevenue is total revenue and units sold for one category.
	CategoryRevenue struct {
		Category string
		Revenue  float64
		Units    int64
	}

	// ProductSales is units sold and revenue for one product.
	ProductSales struct {
		ProductID int64
		Product   string
		UnitsSold int64
		Revenue   float64
	}

	// MonthlySales is revenue and cart count for one calendar month (UTC), formatted YYYY-MM.
	MonthlySales struct {
		Month   string
		Carts   int64
		Revenue float64
	}
)

// NewInsightStore returns a store bound to conn.
func NewInsightStore(conn *Connection) (*InsightStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &InsightStore{conn: conn}, nil
}

// RevenuePerCategory returns revenue per category, highest first.
func (s *InsightStore) RevenuePerCategory(ctx context.Context) ([]CategoryRevenue, error) {
	query := `
		SELECT c.category_name,
		       SUM(f.product_total_price) AS revenue,
		       SUM(f.quantity_purchased)  AS units
		FROM sales_fact_table f
		JOIN category_dimension c ON c.category_id = f.category_id
		GROUP BY c.category_name
		ORDER BY revenue DESC, c.category_name
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, RevenuePerCategoryReport, err)
	}
	defer rows.Close()

	var results []CategoryRevenue

	for rows.Next() {
		var r CategoryRevenue
		if err := rows.Scan(&r.Category, &r.Revenue, &r.Units); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, RevenuePerCategoryReport, err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, RevenuePerCategoryReport, err)
	}

	return results, nil
}

// TopSellingProducts returns the limit products with the most units sold.
// Ties are broken by revenue, then product id.
func (s *InsightStore) TopSellingProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	query := `
		SELECT p.product_id,
		       p.product_name,
		       SUM(f.quantity_purchased)  AS units_sold,
		       SUM(f.product_total_price) AS revenue
		FROM sales_fact_table f
		JOIN product_dimension p ON p.product_id = f.product_id
		GROUP BY p.product_id, p.product_name
		ORDER BY units_sold DESC, revenue DESC, p.product_id
		LIMIT $1
	`

	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, TopSellingProductsReport, err)
	}
	defer rows.Close()

	var results []ProductSales

	for rows.Next() {
		var r ProductSales
		if err := rows.Scan(&r.ProductID, &r.Product, &r.UnitsSold, &r.Revenue); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, TopSellingProductsReport, err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, TopSellingProductsReport, err)
	}

	return results, nil
}

// SalesTrend returns revenue per calendar month in chronological order.
func (s *InsightStore) SalesTrend(ctx context.Context) ([]MonthlySales, error) {
	query := `
		SELECT to_char(date_trunc('month', c.cart_date AT TIME ZONE 'UTC'), 'YYYY-MM') AS sales_month,
		       COUNT(DISTINCT f.cart_id)   AS carts,
		       SUM(f.product_total_price) AS revenue
		FROM sales_fact_table f
		JOIN cart_dimension c ON c.cart_id = f.cart_id
		GROUP BY sales_month
		ORDER BY sales_month
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, SalesTrendReport, err)
	}
	defer rows.Close()

	var results []MonthlySales

	for rows.Next() {
		var r MonthlySales
		if err := rows.Scan(&r.Month, &r.Carts, &r.Revenue); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, SalesTrendReport, err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrQueryFailed, SalesTrendReport, err)
	}

	return results, nil
}

// CategoryRevenueTable converts report rows to a table for the tabular writer.
func CategoryRevenueTable(rows []CategoryRevenue) *tabular.Table {
	table := tabular.NewTable(RevenuePerCategoryReport,
		tabular.Column{Name: "category", Type: tabular.String},
		tabular.Column{Name: "total_revenue", Type: tabular.Float},
		tabular.Column{Name: "units_sold", Type: tabular.Int},
	)

	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.Category, r.Revenue, r.Units})
	}

	return table
}

// ProductSalesTable converts report rows to a table for the tabular writer.
func ProductSalesTable(rows []ProductSales) *tabular.Table {
	table := tabular.NewTable(TopSellingProductsReport,
		tabular.Column{Name: "product_id", Type: tabular.Int},
		tabular.Column{Name: "product", Type: tabular.String},
		tabular.Column{Name: "total_sold", Type: tabular.Int},
		tabular.Column{Name: "total_revenue", Type: tabular.Float},
	)

	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.ProductID, r.Product, r.UnitsSold, r.Revenue})
	}

	return table
}

// MonthlySalesTable converts report rows to a table for the tabular writer.
func MonthlySalesTable(rows []MonthlySales) *tabular.Table {
	table := tabular.NewTable(SalesTrendReport,
		tabular.Column{Name: "sales_month", Type: tabular.String},
		tabular.Column{Name: "carts", Type: tabular.Int},
		tabular.Column{Name: "total_revenue", Type: tabular.Float},
	)

	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.Month, r.Carts, r.Revenue})
	}

	return table
}
