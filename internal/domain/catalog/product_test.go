package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T, stock int) *Product {
	t.Helper()
	p, err := NewProduct(uuid.New(), uuid.New(), "Pistachio baklava 1kg", "Fresh daily", valueobject.NewMoneyTRYFromFloat(650), stock)
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("creates draft product", func(t *testing.T) {
		p := newTestProduct(t, 10)
		assert.Equal(t, ProductStatusDraft, p.Status)
		assert.Equal(t, 10, p.Stock)
	})

	t.Run("rejects zero price", func(t *testing.T) {
		_, err := NewProduct(uuid.New(), uuid.New(), "Baklava", "", valueobject.ZeroTRY(), 10)
		assert.Error(t, err)
	})

	t.Run("rejects negative stock", func(t *testing.T) {
		_, err := NewProduct(uuid.New(), uuid.New(), "Baklava", "", valueobject.NewMoneyTRYFromFloat(650), -1)
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct(uuid.New(), uuid.New(), "", "", valueobject.NewMoneyTRYFromFloat(650), 10)
		assert.Error(t, err)
	})
}

func TestProductPublish(t *testing.T) {
	t.Run("publishes draft with stock", func(t *testing.T) {
		p := newTestProduct(t, 5)
		require.NoError(t, p.Publish())
		assert.Equal(t, ProductStatusPublished, p.Status)
	})

	t.Run("rejects publish without stock", func(t *testing.T) {
		p := newTestProduct(t, 0)
		assert.Error(t, p.Publish())
	})

	t.Run("suspended product cannot be published", func(t *testing.T) {
		p := newTestProduct(t, 5)
		p.Suspend()
		assert.Error(t, p.Publish())
	})

	t.Run("unsuspend returns to draft", func(t *testing.T) {
		p := newTestProduct(t, 5)
		p.Suspend()
		require.NoError(t, p.Unsuspend())
		assert.Equal(t, ProductStatusDraft, p.Status)
	})
}

func TestProductAdjustStock(t *testing.T) {
	p := newTestProduct(t, 5)

	require.NoError(t, p.AdjustStock(-3))
	assert.Equal(t, 2, p.Stock)

	assert.Error(t, p.AdjustStock(-3))
	assert.Equal(t, 2, p.Stock)

	require.NoError(t, p.AdjustStock(10))
	assert.Equal(t, 12, p.Stock)
}

func TestProductIsAvailable(t *testing.T) {
	p := newTestProduct(t, 5)

	assert.False(t, p.IsAvailable(1)) // draft

	require.NoError(t, p.Publish())
	assert.True(t, p.IsAvailable(5))
	assert.False(t, p.IsAvailable(6))
	assert.False(t, p.IsAvailable(0))
}

func TestNewCategory(t *testing.T) {
	t.Run("creates active category", func(t *testing.T) {
		c, err := NewCategory("Gourmet", "gourmet", nil)
		require.NoError(t, err)
		assert.True(t, c.Active)
		assert.Nil(t, c.ParentID)
	})

	t.Run("child keeps parent reference", func(t *testing.T) {
		parent, err := NewCategory("Food", "food", nil)
		require.NoError(t, err)

		child, err := NewCategory("Sweets", "sweets", &parent.ID)
		require.NoError(t, err)
		require.NotNil(t, child.ParentID)
		assert.Equal(t, parent.ID, *child.ParentID)
	})

	t.Run("rejects empty slug", func(t *testing.T) {
		_, err := NewCategory("Gourmet", "", nil)
		assert.Error(t, err)
	})
}
