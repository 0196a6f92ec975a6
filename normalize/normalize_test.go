package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrand(t *testing.T) {
	assert.Equal(t, "Nike", Brand("nike"))
	assert.Equal(t, "Nike", Brand("  NIKE "))
	assert.Equal(t, "New Balance", Brand("newbalance"))
	assert.Equal(t, "Levi's", Brand("levis"))
	// Unknown brands are title-cased, not rejected.
	assert.Equal(t, "Allbirds", Brand("allbirds"))
	assert.Equal(t, "", Brand(""))
}

func TestColor(t *testing.T) {
	assert.Equal(t, "gray", Color("Grey"))
	assert.Equal(t, "blue", Color("navy"))
	assert.Equal(t, "white", Color("Off-White"))
	assert.Equal(t, "teal", Color("teal"))
}

func TestGender(t *testing.T) {
	assert.Equal(t, "men", Gender("Men's"))
	assert.Equal(t, "women", Gender("ladies"))
	assert.Equal(t, "kids", Gender("junior"))
	assert.Equal(t, "unisex", Gender("unisex"))
	assert.Equal(t, "", Gender("robot"))
}

func TestSize(t *testing.T) {
	assert.Equal(t, "42", Size("size 42"))
	assert.Equal(t, "42", Size("EU 42"))
	assert.Equal(t, "M", Size("m"))
	assert.Equal(t, "42.5", Size("42.5"))
}

func TestSiteName(t *testing.T) {
	assert.Equal(t, "zalando", SiteName("www.Zalando.de"))
	assert.Equal(t, "zalando", SiteName("https://zalando.de/shoes"))
	assert.Equal(t, "zalando", SiteName("Zalando"))
	assert.Equal(t, "amazon", SiteName("http://www.amazon.com/dp/B000"))
	assert.Equal(t, "", SiteName(""))
}
