package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/promptopia/backend/internal/models"
)

// ErrDuplicateEmail is returned when a user with the same email already exists.
var ErrDuplicateEmail = errors.New("email already exists")

// UserStore handles user documents in MongoDB.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index. Safe to call on every start.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure email index: %w", err)
	}
	return nil
}

// CreateUser inserts a new user document and fills in its generated id.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return u, nil
}

// GetUserByEmail returns (nil, nil) when no user exists for the email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID returns (nil, nil) when the id is unknown or malformed.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var u models.User
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

// UpdateImage sets the user's image and returns the updated document.
func (s *UserStore) UpdateImage(ctx context.Context, id, image string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var u models.User
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"image": image}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update image: %w", err)
	}
	return &u, nil
}

// ToggleBookmark flips the presence of promptID in the user's bookmark list
// and reports the resulting state. Each side is a single conditional update
// on the user document, so concurrent toggles never corrupt the list: a
// $pull only matches documents that contain the id, and $addToSet never
// duplicates it.
func (s *UserStore) ToggleBookmark(ctx context.Context, userID, promptID string) (bool, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, fmt.Errorf("invalid user id: %w", err)
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": uid, "bookmarks": promptID},
		bson.M{"$pull": bson.M{"bookmarks": promptID}},
	)
	if err != nil {
		return false, fmt.Errorf("remove bookmark: %w", err)
	}
	if res.ModifiedCount > 0 {
		return false, nil
	}

	res, err = s.col.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$addToSet": bson.M{"bookmarks": promptID}},
	)
	if err != nil {
		return false, fmt.Errorf("add bookmark: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, mongo.ErrNoDocuments
	}
	return true, nil
}

// IsBookmarked reports whether the prompt id is in the user's bookmark list.
func (s *UserStore) IsBookmarked(ctx context.Context, userID, promptID string) (bool, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": uid, "bookmarks": promptID})
	if err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}
	return n > 0, nil
}

// GetBookmarks returns the user's bookmarked prompt ids in insertion order.
func (s *UserStore) GetBookmarks(ctx context.Context, userID string) ([]string, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	return u.Bookmarks, nil
}

// CountBookmarks returns the size of the user's bookmark list.
func (s *UserStore) CountBookmarks(ctx context.Context, userID string) (int64, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, nil
	}
	return int64(len(u.Bookmarks)), nil
}
