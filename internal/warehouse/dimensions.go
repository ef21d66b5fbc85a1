package warehouse

import (
	"fmt"
	"strings"

	"github.com/salesdw/salesdw/internal/raw"
)

// BuildCategoryDimension assigns each name its 1-based position as surrogate
// key and returns the rows together with the name index used by the fact builder.
// An empty list yields an empty table and index. Names must be unique.
func BuildCategoryDimension(names []string) ([]Category, CategoryIndex, error) {
	rows := make([]Category, 0, len(names))
	keys := make(map[string]int64, len(names))

	for i, name := range names {
		key := int64(i + 1)

		if existing, ok := keys[name]; ok {
			return nil, CategoryIndex{}, newDataError(ErrDuplicateKey, CategoryTable,
				fmt.Sprintf("category %q", name), "category_name",
				fmt.Errorf("already assigned category_id %d", existing))
		}

		keys[name] = key
		rows = append(rows, Category{CategoryID: key, CategoryName: name})
	}

	return rows, CategoryIndex{keys: keys}, nil
}

// BuildProductDimension projects raw products onto
// {product_id, price, product_name, description, image_url}.
// Category and rating are left to the fact builder.
func BuildProductDimension(products []raw.Product) ([]Product, error) {
	rows := make([]Product, 0, len(products))
	seen := make(map[int64]bool, len(products))

	for i := range products {
		p := &products[i]
		record := recordName("product", p.ID, i)

		id, err := p.ID.Int()
		if err != nil {
			return nil, fieldError(ProductTable, record, "id", err)
		}

		if seen[id] {
			return nil, newDataError(ErrDuplicateKey, ProductTable, record, "id", nil)
		}

		seen[id] = true

		price, err := p.Price.Decimal()
		if err != nil {
			return nil, fieldError(ProductTable, record, "price", err)
		}

		row := Product{ProductID: id, Price: price}

		for _, f := range []struct {
			name  string
			field raw.Field
			dest  *string
		}{
			{"title", p.Title, &row.ProductName},
			{"description", p.Description, &row.Description},
			{"image", p.Image, &row.ImageURL},
		} {
			if *f.dest, err = f.field.Text(); err != nil {
				return nil, fieldError(ProductTable, record, f.name, err)
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// BuildUserDimension flattens name, address and geolocation into one row per user.
// Every nested key is required.
func BuildUserDimension(users []raw.User) ([]User, error) {
	rows := make([]User, 0, len(users))
	seen := make(map[int64]bool, len(users))

	for i := range users {
		u := &users[i]
		record := recordName("user", u.ID, i)

		id, err := u.ID.Int()
		if err != nil {
			return nil, fieldError(UserTable, record, "id", err)
		}

		if seen[id] {
			return nil, newDataError(ErrDuplicateKey, UserTable, record, "id", nil)
		}

		seen[id] = true

		switch {
		case u.Name == nil:
			return nil, missingObject(UserTable, record, "name")
		case u.Address == nil:
			return nil, missingObject(UserTable, record, "address")
		case u.Address.Geolocation == nil:
			return nil, missingObject(UserTable, record, "address.geolocation")
		}

		row := User{UserID: id}

		texts := []struct {
			name  string
			field raw.Field
			dest  *string
		}{
			{"email", u.Email, &row.Email},
			{"username", u.Username, &row.Username},
			{"name.firstname", u.Name.Firstname, &row.FirstName},
			{"name.lastname", u.Name.Lastname, &row.LastName},
			{"phone", u.Phone, &row.PhoneNum},
			{"address.street", u.Address.Street, &row.Street},
			{"address.city", u.Address.City, &row.City},
			{"address.zipcode", u.Address.Zipcode, &row.ZipCode},
		}

		for _, f := range texts {
			if *f.dest, err = f.field.Text(); err != nil {
				return nil, fieldError(UserTable, record, f.name, err)
			}
		}

		if row.Long, err = u.Address.Geolocation.Long.Float(); err != nil {
			return nil, fieldError(UserTable, record, "address.geolocation.long", err)
		}

		if row.Lat, err = u.Address.Geolocation.Lat.Float(); err != nil {
			return nil, fieldError(UserTable, record, "address.geolocation.lat", err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// BuildCartDimension projects each cart header onto {cart_id, cart_date}.
// Line items and the user id are consumed only by the fact builder.
func BuildCartDimension(carts []raw.Cart) ([]Cart, error) {
	rows := make([]Cart, 0, len(carts))
	seen := make(map[int64]bool, len(carts))

	for i := range carts {
		c := &carts[i]
		record := recordName("cart", c.ID, i)

		id, err := c.ID.Int()
		if err != nil {
			return nil, fieldError(CartTable, record, "id", err)
		}

		if seen[id] {
			return nil, newDataError(ErrDuplicateKey, CartTable, record, "id", nil)
		}

		seen[id] = true

		date, err := c.Date.Time()
		if err != nil {
			return nil, fieldError(CartTable, record, "date", err)
		}

		rows = append(rows, Cart{CartID: id, CartDate: date})
	}

	return rows, nil
}

// recordName identifies a raw record by its id when readable, else by position.
func recordName(entity string, id raw.Field, index int) string {
	if id.Present() {
		return entity + " " + strings.Trim(id.Raw(), `"`)
	}

	return fmt.Sprintf("%s at index %d", entity, index)
}
