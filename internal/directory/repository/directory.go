package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	directoryerrors "bookline/internal/directory/errors"
	"bookline/pkg/config"
	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection    = "Users"
	ServicesCollection = "Services"
)

// DirectoryRepository reads users and services owned by the user management
// service. The only writes are to the derived users.appointments list.
type DirectoryRepository interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindServiceByID(ctx context.Context, id string) (*model.Service, error)
	ListUserIDsByCompany(ctx context.Context, companyID string) ([]string, error)
	AddAppointment(ctx context.Context, userIDs []string, appointmentID string) error
	RemoveAppointment(ctx context.Context, userIDs []string, appointmentID string) error
}

type mongoDirectoryRepository struct {
	cfg      *config.Config
	users    *mongo.Collection
	services *mongo.Collection
}

func NewMongoDirectoryRepository(cfg *config.Config) DirectoryRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoDirectoryRepository{
		cfg:      cfg,
		users:    db.Collection(UsersCollection),
		services: db.Collection(ServicesCollection),
	}
}

func (r *mongoDirectoryRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDirectoryRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", directoryerrors.ErrInvalidID, id)
	}

	var user model.User
	err = r.users.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, directoryerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *mongoDirectoryRepository) FindServiceByID(ctx context.Context, id string) (*model.Service, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", directoryerrors.ErrInvalidID, id)
	}

	var service model.Service
	err = r.services.FindOne(ctx, bson.M{"_id": objectID}).Decode(&service)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, directoryerrors.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &service, nil
}

func (r *mongoDirectoryRepository) ListUserIDsByCompany(ctx context.Context, companyID string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.users.Find(ctx, bson.M{"company_id": companyID, "disabled": bson.M{"$ne": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list company users: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode company users: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// AddAppointment records appointmentID on each user exactly once.
func (r *mongoDirectoryRepository) AddAppointment(ctx context.Context, userIDs []string, appointmentID string) error {
	return r.updateAppointments(ctx, userIDs, bson.M{"$addToSet": bson.M{"appointments": appointmentID}})
}

func (r *mongoDirectoryRepository) RemoveAppointment(ctx context.Context, userIDs []string, appointmentID string) error {
	return r.updateAppointments(ctx, userIDs, bson.M{"$pull": bson.M{"appointments": appointmentID}})
}

func (r *mongoDirectoryRepository) updateAppointments(ctx context.Context, userIDs []string, update bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return fmt.Errorf("%w: %s", directoryerrors.ErrInvalidID, id)
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil
	}

	if _, err := r.users.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, update); err != nil {
		return fmt.Errorf("failed to update user appointments: %w", err)
	}
	return nil
}
