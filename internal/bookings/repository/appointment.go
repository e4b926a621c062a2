package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/pkg/config"
	mongotx "bookline/pkg/db/mongo"
	"bookline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Appointments"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	FindByID(ctx context.Context, id string) (*model.Appointment, error)
	FindActiveByStaffAndDate(ctx context.Context, staffID, date string) ([]*model.Appointment, error)
	Find(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64) ([]*model.Appointment, error)
	Count(ctx context.Context, filter model.AppointmentFilter) (int64, error)
	UpdateStatus(ctx context.Context, id string, from model.AppointmentStatus, change model.StatusChange) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
	FindUnlinkedGuests(ctx context.Context, phoneDigits, email string, limit int) ([]*model.Appointment, error)
	LinkCustomer(ctx context.Context, id, customerID string) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAppointmentRepository(cfg *config.Config) AppointmentRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo.Client),
	}
}

// withTimeout leaves a SessionContext untouched: wrapping it would detach
// the operation from its transaction.
func (r *mongoAppointmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		if remaining := time.Until(deadline); remaining < timeout {
			return context.WithTimeout(ctx, remaining)
		}
	}
	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoAppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, appointment)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		appointment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var appointment model.Appointment
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appointment, nil
}

func (r *mongoAppointmentRepository) FindActiveByStaffAndDate(ctx context.Context, staffID, date string) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"staff_id": staffID,
		"date":     date,
		"status":   bson.M{"$in": bson.A{model.StatusPending, model.StatusConfirmed}},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find active appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *mongoAppointmentRepository) Find(ctx context.Context, filter model.AppointmentFilter, limit int, offset int64) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *mongoAppointmentRepository) Count(ctx context.Context, filter model.AppointmentFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func buildFilter(f model.AppointmentFilter) bson.M {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["company_id"] = f.CompanyID
	}
	if f.StaffID != "" {
		filter["staff_id"] = f.StaffID
	}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}
	if f.Date != "" {
		filter["date"] = f.Date
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

// UpdateStatus applies change only if the stored status still equals from.
func (r *mongoAppointmentRepository) UpdateStatus(ctx context.Context, id string, from model.AppointmentStatus, change model.StatusChange) (*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid, "status": from}
	update := bson.M{
		"$set": bson.M{
			"status":     change.Status,
			"updated_at": change.ChangedAt,
		},
		"$push": bson.M{"status_history": change},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Appointment
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return &updated, nil
}

func (r *mongoAppointmentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

// FindUnlinkedGuests returns guest appointments without a customer whose
// stored phone digits overlap phoneDigits or whose normalized email equals email.
func (r *mongoAppointmentRepository) FindUnlinkedGuests(ctx context.Context, phoneDigits, email string, limit int) ([]*model.Appointment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var or bson.A
	if phoneDigits != "" {
		or = append(or, bson.M{"customer_phone_digits": phoneDigits})
		stored := bson.M{"$ifNull": bson.A{"$customer_phone_digits", ""}}
		or = append(or, bson.M{"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{bson.M{"$strLenCP": stored}, 7}},
			bson.M{"$gte": bson.A{bson.M{"$strLenCP": phoneDigits}, 7}},
			bson.M{"$or": bson.A{
				bson.M{"$gte": bson.A{bson.M{"$indexOfCP": bson.A{stored, phoneDigits}}, 0}},
				bson.M{"$gte": bson.A{bson.M{"$indexOfCP": bson.A{phoneDigits, stored}}, 0}},
			}},
		}}})
	}
	if email != "" {
		or = append(or, bson.M{"customer_email_key": email})
	}
	if len(or) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"is_guest":    true,
		"customer_id": bson.M{"$exists": false},
		"$or":         or,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find guest appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*model.Appointment
	if err = cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

// LinkCustomer attaches customerID to a guest appointment that has no
// customer yet. It reports false when the appointment was already linked.
func (r *mongoAppointmentRepository) LinkCustomer(ctx context.Context, id, customerID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return false, err
	}

	filter := bson.M{"_id": oid, "customer_id": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{
		"customer_id": customerID,
		"is_guest":    false,
		"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to link appointment: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoAppointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
