package repository

import (
	"context"
	"fmt"
	"time"

	identityerrors "bookline/internal/identity/errors"
	"bookline/pkg/config"
	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Users"

// CustomerRepository searches registered customers (users with role=customer).
// Every finder takes a limit so callers can detect ambiguity with limit=2.
type CustomerRepository interface {
	FindByPhoneDigits(ctx context.Context, digits string, limit int) ([]*model.User, error)
	FindByPhoneContaining(ctx context.Context, digits string, minDigits int, limit int) ([]*model.User, error)
	FindByEmail(ctx context.Context, email string, limit int) ([]*model.User, error)
	Create(ctx context.Context, customer *model.User) error
}

type mongoCustomerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCustomerRepository(cfg *config.Config) CustomerRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoCustomerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoCustomerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func customerFilter() bson.M {
	return bson.M{
		"role":     model.RoleCustomer,
		"disabled": bson.M{"$ne": true},
	}
}

func (r *mongoCustomerRepository) FindByPhoneDigits(ctx context.Context, digits string, limit int) ([]*model.User, error) {
	filter := customerFilter()
	filter["phone_digits"] = digits
	return r.find(ctx, filter, limit)
}

// FindByPhoneContaining matches stored numbers that contain digits or are
// contained in it. Both sides must have at least minDigits digits.
func (r *mongoCustomerRepository) FindByPhoneContaining(ctx context.Context, digits string, minDigits int, limit int) ([]*model.User, error) {
	if len(digits) < minDigits {
		return nil, nil
	}

	stored := bson.M{"$ifNull": bson.A{"$phone_digits", ""}}
	filter := customerFilter()
	filter["phone_digits"] = bson.M{"$type": "string"}
	// $and short-circuits, so $indexOfCP never sees a short or empty substring.
	filter["$expr"] = bson.M{"$and": bson.A{
		bson.M{"$gte": bson.A{bson.M{"$strLenCP": stored}, minDigits}},
		bson.M{"$or": bson.A{
			bson.M{"$gte": bson.A{bson.M{"$indexOfCP": bson.A{stored, digits}}, 0}},
			bson.M{"$gte": bson.A{bson.M{"$indexOfCP": bson.A{digits, stored}}, 0}},
		}},
	}}
	return r.find(ctx, filter, limit)
}

func (r *mongoCustomerRepository) FindByEmail(ctx context.Context, email string, limit int) ([]*model.User, error) {
	filter := customerFilter()
	filter["email"] = email
	return r.find(ctx, filter, limit)
}

func (r *mongoCustomerRepository) find(ctx context.Context, filter bson.M, limit int) ([]*model.User, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer cursor.Close(ctx)

	var customers []*model.User
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}

func (r *mongoCustomerRepository) Create(ctx context.Context, customer *model.User) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	customer.Role = model.RoleCustomer
	customer.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, customer)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return identityerrors.ErrDuplicateCustomer
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		customer.ID = oid.Hex()
	}
	return nil
}
