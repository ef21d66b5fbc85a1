package warehouse

import (
	"github.com/salesdw/salesdw/internal/tabular"
)

// Warehouse table names, also the CSV base names.
const (
	CategoryTable  = "category_dimension"
	ProductTable   = "product_dimension"
	UserTable      = "user_dimension"
	CartTable      = "cart_dimension"
	SalesFactTable = "sales_fact_table"
)

var schemas = map[string][]tabular.Column{
	CategoryTable: {
		{Name: "category_id", Type: tabular.Int},
		{Name: "category_name", Type: tabular.String},
	},
	ProductTable: {
		{Name: "product_id", Type: tabular.Int},
		{Name: "price", Type: tabular.Float},
		{Name: "product_name", Type: tabular.String},
		{Name: "description", Type: tabular.String},
		{Name: "image_url", Type: tabular.String},
	},
	UserTable: {
		{Name: "user_id", Type: tabular.Int},
		{Name: "email", Type: tabular.String},
		{Name: "username", Type: tabular.String},
		{Name: "first_name", Type: tabular.String},
		{Name: "last_name", Type: tabular.String},
		{Name: "phone_num", Type: tabular.String},
		{Name: "street", Type: tabular.String},
		{Name: "city", Type: tabular.String},
		{Name: "zip_code", Type: tabular.String},
		{Name: "long", Type: tabular.Float},
		{Name: "lat", Type: tabular.Float},
	},
	CartTable: {
		{Name: "cart_id", Type: tabular.Int},
		{Name: "cart_date", Type: tabular.Datetime},
	},
	SalesFactTable: {
		{Name: "sales_id", Type: tabular.Int},
		{Name: "product_id", Type: tabular.Int},
		{Name: "category_id", Type: tabular.Int},
		{Name: "cart_id", Type: tabular.Int},
		{Name: "user_id", Type: tabular.Int},
		{Name: "quantity_purchased", Type: tabular.Int},
		{Name: "product_total_price", Type: tabular.Float},
		{Name: "rating_count", Type: tabular.Int},
		{Name: "rating_rate", Type: tabular.Float},
		{Name: "total_cart_price", Type: tabular.Float},
		{Name: "distinct_products_in_cart", Type: tabular.Int},
	},
}

// LoadOrder lists the tables dimensions first, so fact foreign keys resolve on load.
func LoadOrder() []string {
	return []string{CategoryTable, ProductTable, UserTable, CartTable, SalesFactTable}
}

// Columns returns a copy of the declared columns of a warehouse table.
func Columns(table string) ([]tabular.Column, bool) {
	columns, ok := schemas[table]
	if !ok {
		return nil, false
	}

	return append([]tabular.Column(nil), columns...), true
}

func newTable(name string, capacity int) *tabular.Table {
	columns, _ := Columns(name)
	table := tabular.NewTable(name, columns...)
	table.Rows = make([][]any, 0, capacity)

	return table
}

// CategoryTableOf converts category rows to a typed table.
func CategoryTableOf(rows []Category) *tabular.Table {
	table := newTable(CategoryTable, len(rows))
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.CategoryID, r.CategoryName})
	}

	return table
}

// ProductTableOf converts product rows to a typed table.
func ProductTableOf(rows []Product) *tabular.Table {
	table := newTable(ProductTable, len(rows))
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.ProductID, r.Price, r.ProductName, r.Description, r.ImageURL})
	}

	return table
}

// UserTableOf converts user rows to a typed table.
func UserTableOf(rows []User) *tabular.Table {
	table := newTable(UserTable, len(rows))
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{
			r.UserID, r.Email, r.Username, r.FirstName, r.LastName, r.PhoneNum,
			r.Street, r.City, r.ZipCode, r.Long, r.Lat,
		})
	}

	return table
}

// CartTableOf converts cart rows to a typed table.
func CartTableOf(rows []Cart) *tabular.Table {
	table := newTable(CartTable, len(rows))
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{r.CartID, r.CartDate})
	}

	return table
}

// SalesFactTableOf converts fact rows to a typed table.
func SalesFactTableOf(rows []SalesFact) *tabular.Table {
	table := newTable(SalesFactTable, len(rows))
	for _, r := range rows {
		table.Rows = append(table.Rows, []any{
			r.SalesID, r.ProductID, r.CategoryID, r.CartID, r.UserID,
			r.QuantityPurchased, r.ProductTotalPrice, r.RatingCount, r.RatingRate,
			r.TotalCartPrice, r.DistinctProductsInCart,
		})
	}

	return table
}
