package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWishlist(t *testing.T) {
	f, store := newFakes()
	fx := seedCatalog(f)
	svc := NewWishlistService(store.Wishlists, store.Products)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	require.NoError(t, svc.Add(ctx, userID, fx.rog.ID))
	require.NoError(t, svc.Add(ctx, userID, fx.legion.ID))
	assert.ErrorIs(t, svc.Add(ctx, userID, fx.rog.ID), ErrDuplicate)
	assert.ErrorIs(t, svc.Add(ctx, userID, primitive.NewObjectID()), ErrNotFound)

	page, err := svc.List(ctx, userID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Legion", page.Items[0].Product.ProductName, "most recent first")

	page, err = svc.List(ctx, userID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ROG Strix", page.Items[0].Product.ProductName)

	ok, err := svc.Contains(ctx, userID, fx.rog.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Remove(ctx, userID, fx.rog.ID))
	ok, err = svc.Contains(ctx, userID, fx.rog.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWishlist_MissingIsEmptyPage(t *testing.T) {
	_, store := newFakes()
	svc := NewWishlistService(store.Wishlists, store.Products)

	page, err := svc.List(context.Background(), primitive.NewObjectID(), 1, 10)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Zero(t, page.Total)
}
