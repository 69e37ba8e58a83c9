package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderBy(t *testing.T) {
	cases := []struct {
		key, dir string
		col      string
		desc     bool
	}{
		{"", "", "created_at", true},
		{"price", "asc", "price", false},
		{" title ", " ASC ", "title", false},
		{"createdAt", "desc", "created_at", true},
		{"finalPrice", "asc", "created_at", false},
		{"password_hash", "asc", "created_at", false},
		{"price; DROP TABLE products;--", "asc", "created_at", false},
		{"stock", "ASC; DELETE FROM orders", "stock", true},
	}
	for _, tc := range cases {
		got := orderBy(productSort, tc.key, tc.dir)
		assert.Equal(t, tc.col, got.Column.Name, "key %q", tc.key)
		assert.Equal(t, tc.desc, got.Desc, "dir %q", tc.dir)
	}
}

func TestOrderBy_OrderColumns(t *testing.T) {
	assert.Equal(t, "final_price", orderBy(orderSort, "finalPrice", "").Column.Name)
	assert.Equal(t, "payment_status", orderBy(orderSort, "paymentStatus", "").Column.Name)
	assert.Equal(t, "created_at", orderBy(orderSort, "stock", "").Column.Name)
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "id", camelCase("id"))
	assert.Equal(t, "createdAt", camelCase("created_at"))
	assert.Equal(t, "paymentStatus", camelCase("payment_status"))
	assert.Equal(t, "lastLoginAt", camelCase("last_login_at"))
}
