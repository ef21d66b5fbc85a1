package warehouse

import (
	"errors"

	"github.com/salesdw/salesdw/internal/raw"
	"github.com/salesdw/salesdw/internal/tabular"
)

// ErrNilCollections is returned when Transform is called without input.
var ErrNilCollections = errors.New("raw collections cannot be nil")

// Snapshot is the complete, self-consistent star schema built from one raw snapshot.
type Snapshot struct {
	Categories    []Category
	CategoryIndex CategoryIndex
	Products      []Product
	Users         []User
	Carts         []Cart
	SalesFacts    []SalesFact
}

// Transform builds every dimension and the fact table. On any error it
// returns nil: there is no partial snapshot.
func Transform(collections *raw.Collections) (*Snapshot, error) {
	if collections == nil {
		return nil, ErrNilCollections
	}

	categories, index, err := BuildCategoryDimension(collections.Categories)
	if err != nil {
		return nil, err
	}

	products, err := BuildProductDimension(collections.Products)
	if err != nil {
		return nil, err
	}

	users, err := BuildUserDimension(collections.Users)
	if err != nil {
		return nil, err
	}

	carts, err := BuildCartDimension(collections.Carts)
	if err != nil {
		return nil, err
	}

	facts, err := BuildSalesFacts(collections.Carts, collections.Products, index, products)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Categories:    categories,
		CategoryIndex: index,
		Products:      products,
		Users:         users,
		Carts:         carts,
		SalesFacts:    facts,
	}, nil
}

// Tables returns the five typed tables in LoadOrder.
func (s *Snapshot) Tables() []*tabular.Table {
	return []*tabular.Table{
		CategoryTableOf(s.Categories),
		ProductTableOf(s.Products),
		UserTableOf(s.Users),
		CartTableOf(s.Carts),
		SalesFactTableOf(s.SalesFacts),
	}
}

// RowCounts returns the number of rows per table name.
func (s *Snapshot) RowCounts() map[string]int {
	return map[string]int{
		CategoryTable:  len(s.Categories),
		ProductTable:   len(s.Products),
		UserTable:      len(s.Users),
		CartTable:      len(s.Carts),
		SalesFactTable: len(s.SalesFacts),
	}
}
