package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"volunteerhub/internal/models"
)

// MongoStore implements Store on MongoDB. Shared event arrays are only ever
// changed with $addToSet, $pull, $push or a filtered $set.
type MongoStore struct {
	db            *mongo.Database
	events        *mongo.Collection
	registrations *mongo.Collection
	accounts      *mongo.Collection
	counters      *mongo.Collection
}

// NewMongoStore wraps an open database handle
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:            db,
		events:        db.Collection("events"),
		registrations: db.Collection("registrations"),
		accounts:      db.Collection("accounts"),
		counters:      db.Collection("counters"),
	}
}

// EnsureIndexes creates the indexes the store relies on. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.registrations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "volunteer_id", Value: 1}, {Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "seq", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("registration indexes: %w", err)
	}

	_, err = s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "start_date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("event indexes: %w", err)
	}

	_, err = s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("account indexes: %w", err)
	}
	return nil
}

// Close disconnects the underlying client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// Event operations
func (s *MongoStore) CreateEvent(ctx context.Context, event *models.Event) error {
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.InitCollections()

	_, err := s.events.InsertOne(ctx, event)
	return mongoErr(err)
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		return nil, mongoErr(err)
	}
	return &event, nil
}

func (s *MongoStore) ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.CreatorID != "" {
		query["creator_id"] = filter.CreatorID
	}
	if !filter.StartsAfter.IsZero() {
		query["start_date"] = bson.M{"$gt": filter.StartsAfter}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cursor, err := s.events.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []*models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// conditionalUpdate applies update when the event is in status from. When no
// document matches it distinguishes a missing event from a status mismatch.
func (s *MongoStore) conditionalUpdate(ctx context.Context, id string, from models.EventStatus, update bson.M) (*models.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var event models.Event
	err := s.events.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&event)
	if err == nil {
		return &event, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, ErrStatusMismatch
}

func (s *MongoStore) UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus) (*models.Event, error) {
	return s.conditionalUpdate(ctx, id, from, bson.M{
		"$set": bson.M{"status": to, "updated_at": time.Now()},
	})
}

func (s *MongoStore) RescheduleEvent(ctx context.Context, id string, start, end time.Time) (*models.Event, error) {
	return s.conditionalUpdate(ctx, id, models.StatusApproved, bson.M{
		"$set": bson.M{
			"start_date":     start,
			"end_date":       end,
			"reminders_sent": bson.A{},
			"updated_at":     time.Now(),
		},
	})
}

// DeleteEvent removes the registrations before the event, so a failure
// leaves the event in place and the call can be retried.
func (s *MongoStore) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.registrations.DeleteMany(ctx, bson.M{"event_id": id}); err != nil {
		return err
	}
	result, err := s.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	// A leftover counter only affects an id that no longer exists
	_, _ = s.counters.DeleteOne(ctx, bson.M{"_id": registrationCounter(id)})
	return nil
}

func (s *MongoStore) updateEventArray(ctx context.Context, id string, update bson.M) error {
	result, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AddRegistrant(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventArray(ctx, eventID, bson.M{"$addToSet": bson.M{"registrants": volunteerID}})
}

func (s *MongoStore) RemoveRegistrant(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventArray(ctx, eventID, bson.M{"$pull": bson.M{"registrants": volunteerID}})
}

func (s *MongoStore) AddLike(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventArray(ctx, eventID, bson.M{"$addToSet": bson.M{"likes": volunteerID}})
}

func (s *MongoStore) RemoveLike(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventArray(ctx, eventID, bson.M{"$pull": bson.M{"likes": volunteerID}})
}

func (s *MongoStore) AddComment(ctx context.Context, eventID string, comment models.Comment) error {
	return s.updateEventArray(ctx, eventID, bson.M{"$push": bson.M{"comments": comment}})
}

func (s *MongoStore) MarkReminderSent(ctx context.Context, eventID string, dispatch models.ReminderDispatch) (bool, error) {
	filter := bson.M{
		"_id":                        eventID,
		"reminders_sent.offset_days": bson.M{"$ne": dispatch.OffsetDays},
	}
	result, err := s.events.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"reminders_sent": dispatch}})
	if err != nil {
		return false, err
	}
	if result.ModifiedCount == 1 {
		return true, nil
	}

	// Either the slot was already taken or the event is gone
	count, err := s.events.CountDocuments(ctx, bson.M{"_id": eventID})
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// Registration operations
func (s *MongoStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}
	if reg.Skills == nil {
		reg.Skills = []string{}
	}
	if reg.Seq == 0 {
		seq, err := s.nextSeq(ctx, registrationCounter(reg.EventID))
		if err != nil {
			return fmt.Errorf("registration sequence: %w", err)
		}
		reg.Seq = seq
	}
	_, err := s.registrations.InsertOne(ctx, reg)
	return mongoErr(err)
}

func registrationCounter(eventID string) string {
	return "registrations:" + eventID
}

// nextSeq increments and returns the named counter
func (s *MongoStore) nextSeq(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	for attempt := 0; ; attempt++ {
		err := s.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&counter)
		// Two concurrent upserts of a new counter can race on _id; the loser retries
		if mongo.IsDuplicateKeyError(err) && attempt == 0 {
			continue
		}
		return counter.Seq, err
	}
}

func (s *MongoStore) GetRegistration(ctx context.Context, eventID, volunteerID string) (*models.Registration, error) {
	var reg models.Registration
	err := s.registrations.FindOne(ctx, bson.M{"event_id": eventID, "volunteer_id": volunteerID}).Decode(&reg)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &reg, nil
}

func (s *MongoStore) ListRegistrations(ctx context.Context, eventID string) ([]*models.Registration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.registrations.Find(ctx, bson.M{"event_id": eventID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	regs := []*models.Registration{}
	if err := cursor.All(ctx, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *MongoStore) UpdateRegistrationNotify(ctx context.Context, eventID, volunteerID string, notify bool) error {
	result, err := s.registrations.UpdateOne(ctx,
		bson.M{"event_id": eventID, "volunteer_id": volunteerID},
		bson.M{"$set": bson.M{"notify": notify}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteRegistration(ctx context.Context, eventID, volunteerID string) error {
	result, err := s.registrations.DeleteOne(ctx, bson.M{"event_id": eventID, "volunteer_id": volunteerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Account operations
func (s *MongoStore) UpsertAccount(ctx context.Context, account *models.Account) error {
	now := time.Now()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"role":       account.Role,
			"name":       account.Name,
			"email":      account.Email,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	var stored models.Account
	if err := s.accounts.FindOneAndUpdate(ctx, bson.M{"_id": account.ID}, update, opts).Decode(&stored); err != nil {
		return mongoErr(err)
	}
	*account = stored
	return nil
}

func (s *MongoStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&account); err != nil {
		return nil, mongoErr(err)
	}
	return &account, nil
}

func (s *MongoStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&account); err != nil {
		return nil, mongoErr(err)
	}
	return &account, nil
}
