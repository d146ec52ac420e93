package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type walletRepository struct {
	collection *mongo.Collection
}

func (r *walletRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&w); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func movement(kind string, amount float64, description string, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"transactions": models.WalletTransaction{
			Type:        kind,
			Amount:      amount,
			Description: description,
			Date:        now,
		}},
		"$set": bson.M{"updatedAt": now},
	}
}

func (r *walletRepository) Credit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error) {
	now := time.Now()
	update := movement(models.TransactionCredit, amount, description, now)
	update["$inc"] = bson.M{"balance": amount}
	update["$setOnInsert"] = bson.M{"createdAt": now}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var w models.Wallet
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&w); err != nil {
		return nil, fmt.Errorf("crédit portefeuille: %w", err)
	}
	return &w, nil
}

func (r *walletRepository) Debit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error) {
	update := movement(models.TransactionDebit, amount, description, time.Now())
	update["$inc"] = bson.M{"balance": -amount}

	filter := bson.M{"userId": userID, "balance": bson.M{"$gte": amount}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var w models.Wallet
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("débit portefeuille: %w", err)
	}
	if _, getErr := r.Get(ctx, userID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInsufficientBalance
}
