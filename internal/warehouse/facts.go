package warehouse

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/salesdw/salesdw/internal/raw"
)

// errNegativeQuantity is the cause attached to a line item with quantity < 0.
var errNegativeQuantity = errors.New("quantity must not be negative")

// cartTotals accumulates one cart's aggregates during expansion. price is the
// float64 sum of the cart's line totals in emission order, so it equals what
// summing product_total_price over the cart yields.
type cartTotals struct {
	price     float64
	lineItems int64
}

// BuildSalesFacts expands every cart line item into a fact row.
//
// Pass 1 walks carts and their line items in input order, resolving price
// from the product dimension, category and rating from the raw product with
// the same id, and accumulating per-cart totals. Pass 2 copies each cart's
// total price and line-item count onto all of its rows. sales_id is the
// 1-based position in that order.
//
// Any unresolved reference or bad value aborts the build with no rows.
func BuildSalesFacts(
	carts []raw.Cart,
	products []raw.Product,
	categories CategoryIndex,
	dimension []Product,
) ([]SalesFact, error) {
	prices, err := indexPrices(dimension)
	if err != nil {
		return nil, err
	}

	catalog, err := indexRawProducts(products)
	if err != nil {
		return nil, err
	}

	var (
		facts  []SalesFact
		totals = make(map[int64]*cartTotals, len(carts))
	)

	// Pass 1: expansion.
	for i := range carts {
		cart := &carts[i]
		record := recordName("cart", cart.ID, i)

		cartID, err := cart.ID.Int()
		if err != nil {
			return nil, fieldError(SalesFactTable, record, "id", err)
		}

		if _, ok := totals[cartID]; ok {
			return nil, newDataError(ErrDuplicateKey, SalesFactTable, record, "id", nil)
		}

		userID, err := cart.UserID.Int()
		if err != nil {
			return nil, fieldError(SalesFactTable, record, "userId", err)
		}

		if cart.Products == nil {
			return nil, missingObject(SalesFactTable, record, "products")
		}

		acc := &cartTotals{}
		totals[cartID] = acc

		for j := range cart.Products {
			fact, lineTotal, err := expandLineItem(cart.Products[j], fmt.Sprintf("%s line %d", record, j+1),
				prices, catalog, categories)
			if err != nil {
				return nil, err
			}

			fact.SalesID = int64(len(facts) + 1)
			fact.CartID = cartID
			fact.UserID = userID

			acc.price += lineTotal
			acc.lineItems++

			facts = append(facts, fact)
		}
	}

	// Pass 2: broadcast cart aggregates.
	for i := range facts {
		acc := totals[facts[i].CartID]
		facts[i].TotalCartPrice = acc.price
		facts[i].DistinctProductsInCart = acc.lineItems
	}

	return facts, nil
}

func expandLineItem(
	item raw.LineItem,
	record string,
	prices map[int64]decimal.Decimal,
	catalog map[int64]*raw.Product,
	categories CategoryIndex,
) (SalesFact, float64, error) {
	productID, err := item.ProductID.Int()
	if err != nil {
		return SalesFact{}, 0, fieldError(SalesFactTable, record, "productId", err)
	}

	quantity, err := item.Quantity.Int()
	if err != nil {
		return SalesFact{}, 0, fieldError(SalesFactTable, record, "quantity", err)
	}

	if quantity < 0 {
		return SalesFact{}, 0, newDataError(ErrMalformedInput, SalesFactTable, record, "quantity",
			fmt.Errorf("%w: got %d", errNegativeQuantity, quantity))
	}

	price, ok := prices[productID]
	if !ok {
		return SalesFact{}, 0, newDataError(ErrMissingReference, SalesFactTable, record, "productId",
			fmt.Errorf("product_id %d not found in %s", productID, ProductTable))
	}

	source, ok := catalog[productID]
	if !ok {
		return SalesFact{}, 0, newDataError(ErrMissingReference, SalesFactTable, record, "productId",
			fmt.Errorf("product_id %d not found in raw products", productID))
	}

	product := recordName("product", source.ID, 0)

	categoryName, err := source.Category.Text()
	if err != nil {
		return SalesFact{}, 0, fieldError(SalesFactTable, product, "category", err)
	}

	categoryID, ok := categories.Lookup(categoryName)
	if !ok {
		return SalesFact{}, 0, newDataError(ErrMissingReference, SalesFactTable, product, "category",
			fmt.Errorf("category %q not found in %s", categoryName, CategoryTable))
	}

	if source.Rating == nil {
		return SalesFact{}, 0, missingObject(SalesFactTable, product, "rating")
	}

	ratingCount, err := source.Rating.Count.Int()
	if err != nil {
		return SalesFact{}, 0, fieldError(SalesFactTable, product, "rating.count", err)
	}

	ratingRate, err := source.Rating.Rate.Float()
	if err != nil {
		return SalesFact{}, 0, fieldError(SalesFactTable, product, "rating.rate", err)
	}

	lineTotal := price.InexactFloat64() * float64(quantity)

	return SalesFact{
		ProductID:         productID,
		CategoryID:        categoryID,
		QuantityPurchased: quantity,
		ProductTotalPrice: lineTotal,
		RatingCount:       ratingCount,
		RatingRate:        ratingRate,
	}, lineTotal, nil
}

// indexPrices maps product_id to price. A product dimension with a repeated
// id is a data-integrity fault.
func indexPrices(dimension []Product) (map[int64]decimal.Decimal, error) {
	prices := make(map[int64]decimal.Decimal, len(dimension))

	for _, p := range dimension {
		if _, ok := prices[p.ProductID]; ok {
			return nil, newDataError(ErrDuplicateKey, ProductTable,
				fmt.Sprintf("product %d", p.ProductID), "product_id", nil)
		}

		prices[p.ProductID] = p.Price
	}

	return prices, nil
}

// indexRawProducts keys raw products by id, so ids need not be dense or ordered.
func indexRawProducts(products []raw.Product) (map[int64]*raw.Product, error) {
	catalog := make(map[int64]*raw.Product, len(products))

	for i := range products {
		record := recordName("product", products[i].ID, i)

		id, err := products[i].ID.Int()
		if err != nil {
			return nil, fieldError(SalesFactTable, record, "id", err)
		}

		if _, ok := catalog[id]; ok {
			return nil, newDataError(ErrDuplicateKey, SalesFactTable, record, "id", nil)
		}

		catalog[id] = &products[i]
	}

	return catalog, nil
}
