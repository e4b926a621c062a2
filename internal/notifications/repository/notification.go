package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationserrors "bookline/internal/notifications/errors"
	"bookline/pkg/config"
	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Notifications"

// NotificationRepository stores notifications. Visibility is evaluated at
// query time against the user record passed in, never stored per recipient.
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	FindByID(ctx context.Context, id string) (*model.Notification, error)
	FindVisible(ctx context.Context, user *model.User, limit int, offset int64) ([]*model.Notification, error)
	CountVisible(ctx context.Context, user *model.User) (int64, error)
	CountUnread(ctx context.Context, user *model.User) (int64, error)
	MarkRead(ctx context.Context, id string, at time.Time) (*model.Notification, error)
}

type mongoNotificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoNotificationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoNotificationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", notificationserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoNotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	notification.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		notification.ID = oid.Hex()
	}
	return nil
}

func (r *mongoNotificationRepository) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var notification model.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&notification); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notificationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notification, nil
}

func (r *mongoNotificationRepository) FindVisible(ctx context.Context, user *model.User, limit int, offset int64) ([]*model.Notification, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, VisibilityFilter(user), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []*model.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (r *mongoNotificationRepository) CountVisible(ctx context.Context, user *model.User) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, VisibilityFilter(user))
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, user *model.User) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := VisibilityFilter(user)
	filter["is_read"] = false

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead sets is_read once. A notification that is already read is returned unchanged.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) (*model.Notification, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"is_read": true, "read_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var notification model.Notification
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid, "is_read": false}, update, opts).Decode(&notification)
	if err == nil {
		return &notification, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&notification); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notificationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notification, nil
}

// VisibilityFilter matches the notifications u may see: addressed to u, to
// u's current company, or to everyone.
func VisibilityFilter(u *model.User) bson.M {
	clauses := bson.A{
		bson.M{"scope": model.ScopeSpecific, "recipient_id": u.ID},
		bson.M{"scope": model.ScopeAll},
	}
	if u.CompanyID != "" {
		clauses = append(clauses, bson.M{"scope": model.ScopeCompany, "company_id": u.CompanyID})
	}
	return bson.M{"$or": clauses}
}
