package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/michellelee0718/porespective/internal/models"
)

// ErrInvalidRoutineSlot is returned when a routine slot is not "am" or "pm".
var ErrInvalidRoutineSlot = errors.New("invalid routine type: must be 'am' or 'pm'")

// TodayString returns the given time's calendar date as "YYYY-MM-DD".
func TodayString(now time.Time) string {
	return now.Format("2006-01-02")
}

type MongoUserService struct {
	client   *mongo.Client
	db       *mongo.Database
	usersCol *mongo.Collection
}

func NewMongoUserService(ctx context.Context, mongoURI, dbName string) (*MongoUserService, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	col := db.Collection("users")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoUserService{
		client:   client,
		db:       db,
		usersCol: col,
	}, nil
}

func (s *MongoUserService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database exposes the underlying database so sibling services (product and
// summary caches) can share the one connection.
func (s *MongoUserService) Database() *mongo.Database {
	return s.db
}

func (s *MongoUserService) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var prof models.UserProfile
	if err := s.usersCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// GetOrCreate returns the user's profile, lazily creating an empty one with a
// fresh check-in record when missing. A missing userID is a no-op, not an
// error.
func (s *MongoUserService) GetOrCreate(ctx context.Context, userID, email string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, nil
	}

	var prof models.UserProfile
	err := s.usersCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == nil {
		if email != "" && prof.Email == "" {
			_, _ = s.usersCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
				"$set": bson.M{"email": email},
			})
			prof.Email = email
		}
		return &prof, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	prof = models.UserProfile{
		UserID: userID,
		Email:  email,
		RoutineCheckIn: models.RoutineCheckIn{
			LastResetDate: TodayString(time.Now()),
		},
	}
	if _, err = s.usersCol.InsertOne(ctx, prof); err != nil {
		// If a race created it, fetch again.
		var retry models.UserProfile
		if err2 := s.usersCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&retry); err2 == nil {
			return &retry, nil
		}
		return nil, err
	}
	return &prof, nil
}

// Upsert applies a partial profile update. Only fields present in the request
// are written.
func (s *MongoUserService) Upsert(ctx context.Context, userID, email string, req *models.UpdateProfileRequest) (*models.UserProfile, error) {
	if userID == "" {
		return nil, nil
	}

	set := bson.M{}
	if email != "" {
		set["email"] = email
	}
	if req.FullName != nil {
		set["full_name"] = *req.FullName
	}
	if req.Gender != nil {
		set["gender"] = *req.Gender
	}
	if req.SkinType != nil {
		set["skin_type"] = *req.SkinType
	}
	if req.SkinConcerns != nil {
		set["skin_concerns"] = *req.SkinConcerns
	}
	if req.Allergies != nil {
		set["allergies"] = *req.Allergies
	}
	if req.Routine != nil {
		set["skincare_routine"] = *req.Routine
	}
	if req.DeviceToken != nil {
		set["device_token"] = *req.DeviceToken
	}

	setOnInsert := bson.M{
		"user_id": userID,
		"routine_check_in": models.RoutineCheckIn{
			LastResetDate: TodayString(time.Now()),
		},
	}

	_, err := s.usersCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}

	var prof models.UserProfile
	if err := s.usersCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// InitDailyCheckIn resets the check-in record when its lastResetDate is not
// the given date, clearing completion and notification flags together and
// persisting before returning. When the record is already current it is a
// pure read. Missing identity or missing document yields (nil, nil).
func (s *MongoUserService) InitDailyCheckIn(ctx context.Context, userID, today string) (*models.RoutineCheckIn, error) {
	if userID == "" {
		return nil, nil
	}

	var prof models.UserProfile
	err := s.usersCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if prof.RoutineCheckIn.LastResetDate == today {
		return &prof.RoutineCheckIn, nil
	}

	checkIn := models.RoutineCheckIn{
		LastResetDate: today,
	}
	_, err = s.usersCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{
			"routine_check_in": checkIn,
			"am_notification":  false,
			"pm_notification":  false,
		},
	})
	if err != nil {
		return nil, err
	}
	return &checkIn, nil
}

// MarkRoutineCompleted flips the completion flag for the given slot after
// making sure the check-in record is current. An invalid slot is an error
// with no store access; a missing identity is a no-op.
func (s *MongoUserService) MarkRoutineCompleted(ctx context.Context, userID, slot, today string) error {
	if slot != "am" && slot != "pm" {
		return ErrInvalidRoutineSlot
	}
	if userID == "" {
		return nil
	}

	if _, err := s.InitDailyCheckIn(ctx, userID, today); err != nil {
		return err
	}

	field := fmt.Sprintf("routine_check_in.%s_completed", slot)
	_, err := s.usersCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{field: true},
	})
	return err
}

// SetNotificationFlag persists the per-slot "already notified today" marker.
func (s *MongoUserService) SetNotificationFlag(ctx context.Context, userID, slot string, value bool) error {
	if slot != "am" && slot != "pm" {
		return ErrInvalidRoutineSlot
	}
	if userID == "" {
		return nil
	}

	_, err := s.usersCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{slot + "_notification": value},
	})
	return err
}

// ListReminderCandidates returns every profile with at least one routine time
// configured. The reminder worker reads these fresh on every tick.
func (s *MongoUserService) ListReminderCandidates(ctx context.Context) ([]models.UserProfile, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"skincare_routine.am": bson.M{"$nin": bson.A{"", nil}}},
		bson.M{"skincare_routine.pm": bson.M{"$nin": bson.A{"", nil}}},
	}}

	cur, err := s.usersCol.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []models.UserProfile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// DeleteUser removes the user document. Used by account deletion.
func (s *MongoUserService) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.usersCol.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
