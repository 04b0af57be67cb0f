// internal/domain/models/user.go
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the public profile of an account owned by the external identity
// service. This module only reads it.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName      string             `bson:"first_name" json:"first_name"`
	LastName       string             `bson:"last_name" json:"last_name"`
	UserName       string             `bson:"user_name" json:"user_name"`
	Hospital       string             `bson:"hospital" json:"hospital"`
	PictureProfile string             `bson:"picture_profile,omitempty" json:"picture_profile,omitempty"`
	Country        string             `bson:"country" json:"country"`
}
