// Package data provides DB models and stores.
package data

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/krpetrov/svyaz/internal/normalize"
)

// parseID converts a hex user/chat/message id into an ObjectID. An
// unparseable id can never reference a stored document, so it maps to
// ErrNotFound rather than a separate validation error.
func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: bad id %q", ErrNotFound, id)
	}
	return oid, nil
}

// UsersStore performs user DB operations.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new user document with an already-hashed password.
func (u *UsersStore) CreateUser(ctx context.Context, name, email, hashedPassword string) (*User, error) {
	now := time.Now()
	user := &User{
		Name:      name,
		Email:     normalize.Email(email),
		Password:  hashedPassword,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by (normalized) email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by hex id.
func (u *UsersStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var user User
	if err := u.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes name and/or email. An email change that would collide
// with another user's address fails with ErrUserExists.
func (u *UsersStore) UpdateUser(ctx context.Context, id, name, email string) (*User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now()}
	if name != "" {
		set["name"] = name
	}
	if email != "" {
		set["email"] = normalize.Email(email)
	}

	res, err := u.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return u.GetUserByID(ctx, id)
}

// DeleteUser removes a user document.
func (u *UsersStore) DeleteUser(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := u.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UserExists checks existence by hex id.
func (u *UsersStore) UserExists(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, nil
	}
	count, err := u.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Search finds users whose name or email starts with the query
// (case-insensitive), capped at limit.
func (u *UsersStore) Search(ctx context.Context, query string, limit int64) ([]*User, error) {
	if limit <= 0 {
		limit = 20
	}

	pattern := bson.M{"$regex": "^" + regexp.QuoteMeta(query), "$options": "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"email": pattern},
	}}

	cursor, err := u.coll.Find(ctx, filter, options.Find().SetLimit(limit).SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetPresence persists the presence record for a user.
func (u *UsersStore) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := u.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"is_online": online, "last_seen": lastSeen},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PresenceSnapshot batch-reads presence for the given user ids. Unknown ids
// are simply absent from the result.
func (u *UsersStore) PresenceSnapshot(ctx context.Context, ids []string) (map[string]PresenceStatus, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}

	out := make(map[string]PresenceStatus, len(oids))
	if len(oids) == 0 {
		return out, nil
	}

	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, usr := range users {
		out[usr.ID.Hex()] = PresenceStatus{Online: usr.IsOnline, LastSeen: usr.LastSeen}
	}
	return out, nil
}
