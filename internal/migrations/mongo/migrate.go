package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookline/internal/migrations/mongo/validators"
	"bookline/pkg/logger"
)

var (
	AppointmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "staff_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "company_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start_time", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "customer_id", Value: 1},
			{Key: "date", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "is_guest", Value: 1},
			{Key: "customer_phone_digits", Value: 1},
		}},
		{
			Keys:    bson.D{{Key: "is_guest", Value: 1}, {Key: "customer_email_key", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "scope", Value: 1},
			{Key: "recipient_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "scope", Value: 1},
			{Key: "company_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "scope", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}

	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	UsersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "phone_digits", Value: 1}}},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
	}

	ServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
	}
)

// CollectionDefinition describes one collection the job converges.
// A nil Validator means the collection is owned by another system and only
// its indexes are managed here.
type CollectionDefinition struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var Collections = []CollectionDefinition{
	{Name: "Appointments", Indexes: AppointmentsIndexes, Validator: validators.AppointmentValidator},
	{Name: "Notifications", Indexes: NotificationsIndexes, Validator: validators.NotificationValidator},
	{Name: "Booking_locks", Indexes: BookingLocksIndexes, Validator: validators.BookingLockValidator},
	{Name: "Users", Indexes: UsersIndexes},
	{Name: "Services", Indexes: ServicesIndexes},
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections {
		if def.Validator != nil {
			if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
				return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
			}
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	created, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", created)
	return nil
}
