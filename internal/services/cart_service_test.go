package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/services"
)

type cartFixture struct {
	products *repositories.MockProductRepository
	carts    *repositories.MockCartRepository
	svc      *services.CartService
}

func newCartFixture() *cartFixture {
	products := repositories.NewMockProductRepository()
	carts := repositories.NewMockCartRepository()
	return &cartFixture{
		products: products,
		carts:    carts,
		svc:      services.NewCartService(carts, products, zap.NewNop()),
	}
}

func TestCartService_GetCart_NewUserGetsEmptyView(t *testing.T) {
	f := newCartFixture()

	view, err := f.svc.GetCart(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.Count)
	assert.True(t, view.Total.Equal(models.Money{}))
}

func TestCartService_AddItem(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	product := seedProduct(t, f.products, "T-Shirt", "399.00", 20)

	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 1, nil))
	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 2, nil))

	cart, err := f.carts.GetByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCartService_AddItem_VariantsStaySeparate(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	product := seedProduct(t, f.products, "T-Shirt", "399.00", 20)

	red := &models.Variant{Size: "M", Color: "red"}
	blue := &models.Variant{Size: "M", Color: "blue"}
	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 1, red))
	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 1, blue))
	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 1, red))

	cart, err := f.carts.GetByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
}

func TestCartService_AddItem_UnknownProduct(t *testing.T) {
	f := newCartFixture()

	err := f.svc.AddItem(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), 1, nil)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCartService_GetCart_Totals(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	shirt := seedProduct(t, f.products, "T-Shirt", "399.00", 20)
	mug := seedProduct(t, f.products, "Coffee Mug", "149.50", 10)
	require.NoError(t, f.svc.AddItem(ctx, userID, shirt.ID, 2, nil))
	require.NoError(t, f.svc.AddItem(ctx, userID, mug.ID, 1, nil))

	view, err := f.svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Count)
	assert.True(t, view.Total.Equal(mustMoney(t, "947.50")))
}

func TestCartService_ResolveItems_DropsOrphansAndPersists(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	keep := seedProduct(t, f.products, "Backpack", "1999.00", 5)
	doomed := seedProduct(t, f.products, "Discontinued Gadget", "599.00", 5)
	require.NoError(t, f.svc.AddItem(ctx, userID, keep.ID, 1, nil))
	require.NoError(t, f.svc.AddItem(ctx, userID, doomed.ID, 1, nil))

	require.NoError(t, f.products.Delete(ctx, doomed.ID))

	lines, err := f.svc.ResolveItems(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, keep.ID, lines[0].Product.ID)

	// The orphaned line was removed from the stored cart too.
	cart, err := f.carts.GetByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, keep.ID, cart.Items[0].ProductID)
}

func TestCartService_ResolveItems_AllOrphansMeansEmptyCart(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	doomed := seedProduct(t, f.products, "Discontinued Gadget", "599.00", 5)
	require.NoError(t, f.svc.AddItem(ctx, userID, doomed.ID, 1, nil))
	require.NoError(t, f.products.Delete(ctx, doomed.ID))

	_, err := f.svc.ResolveItems(ctx, userID)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	product := seedProduct(t, f.products, "T-Shirt", "399.00", 20)

	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 1, nil))
	require.NoError(t, f.svc.UpdateItemQuantity(ctx, userID, product.ID, 5))

	cart, err := f.carts.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	err = f.svc.UpdateItemQuantity(ctx, userID, primitive.NewObjectID(), 2)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCartService_RemoveItem(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	product := seedProduct(t, f.products, "T-Shirt", "399.00", 20)

	require.NoError(t, f.svc.AddItem(ctx, userID, product.ID, 1, nil))
	require.NoError(t, f.svc.RemoveItem(ctx, userID, product.ID))

	cart, err := f.carts.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	err = f.svc.RemoveItem(ctx, userID, product.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
