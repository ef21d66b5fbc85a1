package raw

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotDir = "testdata/snapshot"

func TestLoadCollections(t *testing.T) {
	collections, err := LoadCollections(snapshotDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"electronics", "jewelery", "men's clothing", "women's clothing"}, collections.Categories)
	require.Len(t, collections.Products, 4)
	require.Len(t, collections.Users, 2)
	require.Len(t, collections.Carts, 3)

	product := collections.Products[2]
	id, err := product.ID.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	require.NotNil(t, product.Rating)
	count, err := product.Rating.Count.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(400), count)

	user := collections.Users[0]
	require.NotNil(t, user.Address)
	require.NotNil(t, user.Address.Geolocation)
	lat, err := user.Address.Geolocation.Lat.Float()
	require.NoError(t, err)
	assert.InDelta(t, -37.3159, lat, 1e-9)

	cart := collections.Carts[1]
	require.Len(t, cart.Products, 2)
	quantity, err := cart.Products[1].Quantity.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(10), quantity)
}

func TestLoadCollectionsMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir, CategoriesCollection), []byte(`["a"]`), 0o600))

	_, err := LoadCollections(dir)

	require.ErrorIs(t, err, ErrCollectionMissing)
	assert.Contains(t, err.Error(), "products.json")
}

func TestLoadFileRejectsWrongShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"electronics": 1}`), 0o600))

	var categories []string
	err := LoadFile(path, &categories)

	require.ErrorIs(t, err, ErrCollectionDecode)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	var categories []string

	err := Decode(strings.NewReader(`["a"] ["b"]`), &categories)

	require.ErrorIs(t, err, ErrCollectionDecode)
}

func TestDecodeKeepsAbsentNestedObjectsNil(t *testing.T) {
	var users []User

	require.NoError(t, Decode(strings.NewReader(`[{"id": 3, "email": "kevin@gmail.com"}]`), &users))
	require.Len(t, users, 1)

	assert.Nil(t, users[0].Name)
	assert.Nil(t, users[0].Address)
	assert.False(t, users[0].Phone.Present())
	assert.True(t, users[0].Email.Present())
}

func TestDecodeDistinguishesMissingAndEmptyLineItems(t *testing.T) {
	var carts []Cart

	require.NoError(t, Decode(strings.NewReader(`[{"id": 1, "products": []}, {"id": 2}]`), &carts))

	assert.NotNil(t, carts[0].Products)
	assert.Empty(t, carts[0].Products)
	assert.Nil(t, carts[1].Products)
}
