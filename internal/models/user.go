package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a single account document in MongoDB. Email is the natural key;
// exactly one document exists per email (unique index). Password is empty
// for accounts created through Google sign-in. Bookmarks holds prompt ids
// (UUID strings from the prompt store) in insertion order.
type User struct {
	ID        primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	Name      string             `json:"name"      bson:"name,omitempty"`
	Username  string             `json:"username"  bson:"username,omitempty"`
	Email     string             `json:"email"     bson:"email"`
	Image     string             `json:"image"     bson:"image,omitempty"`
	Password  string             `json:"-"         bson:"password,omitempty"`
	Bookmarks []string           `json:"-"         bson:"bookmarks,omitempty"`
}

// Profile is the safe projection of a User returned by API handlers.
// It never carries the password hash or the bookmark list.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Image    string `json:"image,omitempty"`
}

// PublicProfile returns the API-safe view of the user.
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Image:    u.Image,
	}
}

// SignupRequest is the JSON body for POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SigninRequest is the JSON body for POST /api/auth/signin.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ImageUpdateRequest is the JSON body for POST /api/auth/profile/image.
type ImageUpdateRequest struct {
	Image string `json:"image"`
}
