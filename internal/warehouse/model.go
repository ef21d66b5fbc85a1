// Package warehouse builds the sales star schema from raw store collections.
//
// Four dimension builders (category, product, user, cart) and one fact builder
// turn a raw.Collections snapshot into typed rows. Everything here is a pure,
// single-threaded transformation: a build either succeeds completely or
// returns a *DataError and no rows.
package warehouse

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Category is a row of category_dimension. CategoryID is a surrogate key
	// equal to the 1-based position of the name in the source list.
	Category struct {
		CategoryID   int64
		CategoryName string
	}

	// Product is a row of product_dimension, keyed by the source product id.
	Product struct {
		ProductID   int64
		Price       decimal.Decimal
		ProductName string
		Description string
		ImageURL    string
	}

	// User is a row of user_dimension, flattened from the nested user record.
	User struct {
		UserID    int64
		Email     string
		Username  string
		FirstName string
		LastName  string
		PhoneNum  string
		Street    string
		City      string
		ZipCode   string
		Long      float64
		Lat       float64
	}

	// Cart is a row of cart_dimension.
	Cart struct {
		CartID   int64
		CartDate time.Time
	}

	// SalesFact is one purchased line item. TotalCartPrice and
	// DistinctProductsInCart are cart-level aggregates repeated on every row
	// of the cart; DistinctProductsInCart counts line items, not unique products.
	SalesFact struct {
		SalesID                int64
		ProductID              int64
		CategoryID             int64
		CartID                 int64
		UserID                 int64
		QuantityPurchased      int64
		ProductTotalPrice      float64
		RatingCount            int64
		RatingRate             float64
		TotalCartPrice         float64
		DistinctProductsInCart int64
	}
)

// CategoryIndex maps a category name to its surrogate key.
// It is read-only once built.
type CategoryIndex struct {
	keys map[string]int64
}

// NewCategoryIndex builds an index from name/key pairs. Later pairs win.
func NewCategoryIndex(keys map[string]int64) CategoryIndex {
	copied := make(map[string]int64, len(keys))
	for name, key := range keys {
		copied[name] = key
	}

	return CategoryIndex{keys: copied}
}

// Lookup returns the surrogate key for name.
func (i CategoryIndex) Lookup(name string) (int64, bool) {
	key, ok := i.keys[name]

	return key, ok
}

// Len returns the number of indexed categories.
func (i CategoryIndex) Len() int {
	return len(i.keys)
}
