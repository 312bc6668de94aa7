package repositories

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shelftrack/internal/database"
	"shelftrack/internal/models"
	"shelftrack/internal/utils"
)

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	FindByID(ctx context.Context, itemID primitive.ObjectID) (*models.Item, error)
	FindByIDWithOwner(ctx context.Context, itemID primitive.ObjectID) (*models.ItemWithOwner, error)
	FindPage(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.ItemWithOwner, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	UpdateOne(ctx context.Context, itemID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, itemID primitive.ObjectID) (*mongo.DeleteResult, error)
}

type itemRepository struct {
	db database.Service
}

func NewItemRepository(db database.Service) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) collection() *mongo.Collection {
	return r.db.Client().Database(database.Name).Collection("items")
}

// ownerLookup joins the owning user's public fields into each item document
// under "owner". Password and email never leave the users collection.
func ownerLookup() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$owner",
			"preserveNullAndEmptyArrays": true,
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"owner.password":  0,
			"owner.email":     0,
			"owner.createdAt": 0,
			"owner.updatedAt": 0,
		}}},
	}
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	queryType := "create"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().InsertOne(ctx, item)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}
	item.ID = result.InsertedID.(primitive.ObjectID)
	return item, nil
}

func (r *itemRepository) FindByID(ctx context.Context, itemID primitive.ObjectID) (*models.Item, error) {
	queryType := "findByID"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var item models.Item
	err := r.collection().FindOne(ctx, bson.M{"_id": itemID}).Decode(&item)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, err // Can be mongo.ErrNoDocuments
	}
	return &item, nil
}

func (r *itemRepository) FindByIDWithOwner(ctx context.Context, itemID primitive.ObjectID) (*models.ItemWithOwner, error) {
	queryType := "findByIDWithOwner"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	pipeline := append(mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"_id": itemID}}},
	}, ownerLookup()...)

	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to retrieve item: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.ItemWithOwner
	if err := cursor.All(ctx, &results); err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("error decoding item: %w", err)
	}
	if len(results) == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return &results[0], nil
}

func (r *itemRepository) FindPage(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.ItemWithOwner, error) {
	queryType := "findPage"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}

	pipeline := append(mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$sort", Value: sort}},
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	}, ownerLookup()...)

	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to retrieve items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.ItemWithOwner
	if err := cursor.All(ctx, &items); err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("error decoding items: %w", err)
	}
	return items, nil
}

func (r *itemRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	queryType := "count"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	count, err := r.collection().CountDocuments(ctx, filter)
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func (r *itemRepository) UpdateOne(ctx context.Context, itemID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error) {
	queryType := "updateOne"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().UpdateOne(ctx, bson.M{"_id": itemID}, bson.M{"$set": updateFields})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return result, nil
}

func (r *itemRepository) DeleteOne(ctx context.Context, itemID primitive.ObjectID) (*mongo.DeleteResult, error) {
	queryType := "deleteOne"
	repository := "item"
	status := "success"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		utils.DBQueryDurationSeconds.WithLabelValues(queryType, repository, status).Observe(v)
	}))
	defer timer.ObserveDuration()

	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": itemID})
	if err != nil {
		status = "error"
		utils.DBQueryErrorsTotal.WithLabelValues(queryType, repository).Inc()
		return nil, fmt.Errorf("failed to delete item: %w", err)
	}
	return result, nil
}
