// Package raw loads the persisted JSON collections pulled from the store API.
//
// Records mirror the API payloads. Scalars are held as Field so that a missing
// key, a null and a value of the wrong type stay distinguishable until a
// dimension builder coerces them; nested objects are pointers so an absent
// object is nil rather than a zero value.
package raw

// Collection names. Each is persisted as <name>.json in the raw directory.
const (
	CategoriesCollection = "categories"
	ProductsCollection   = "products"
	UsersCollection      = "users"
	CartsCollection      = "carts"
)

type (
	// Collections holds the four raw collections of one ingestion snapshot.
	Collections struct {
		Categories []string
		Products   []Product
		Users      []User
		Carts      []Cart
	}

	// Product is a catalog entry as served by the products endpoint.
	Product struct {
		ID          Field   `json:"id"`
		Title       Field   `json:"title"`
		Price       Field   `json:"price"`
		Description Field   `json:"description"`
		Category    Field   `json:"category"`
		Image       Field   `json:"image"`
		Rating      *Rating `json:"rating"`
	}

	// Rating is the review snapshot embedded in a product.
	Rating struct {
		Rate  Field `json:"rate"`
		Count Field `json:"count"`
	}

	// User is a customer record with nested name and address objects.
	User struct {
		ID       Field    `json:"id"`
		Email    Field    `json:"email"`
		Username Field    `json:"username"`
		Phone    Field    `json:"phone"`
		Name     *Name    `json:"name"`
		Address  *Address `json:"address"`
	}

	// Name is the nested user name.
	Name struct {
		Firstname Field `json:"firstname"`
		Lastname  Field `json:"lastname"`
	}

	// Address is the nested user address.
	Address struct {
		Street      Field        `json:"street"`
		Number      Field        `json:"number"`
		City        Field        `json:"city"`
		Zipcode     Field        `json:"zipcode"`
		Geolocation *Geolocation `json:"geolocation"`
	}

	// Geolocation holds coordinates; the API serves them as strings.
	Geolocation struct {
		Lat  Field `json:"lat"`
		Long Field `json:"long"`
	}

	// Cart is a cart header with its embedded line items.
	// Products is nil when the key is absent and empty when the cart has no items.
	Cart struct {
		ID       Field      `json:"id"`
		UserID   Field      `json:"userId"` //nolint:tagliatelle // API field name
		Date     Field      `json:"date"`
		Products []LineItem `json:"products"`
	}

	// LineItem is one product entry inside a cart.
	LineItem struct {
		ProductID Field `json:"productId"` //nolint:tagliatelle // API field name
		Quantity  Field `json:"quantity"`
	}
)
