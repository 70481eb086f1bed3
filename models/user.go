package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User statuses
const (
	UserActive   = "active"
	UserInactive = "inactive"
	UserBlocked  = "blocked"
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidPhone reports whether phone is an international number such as +5491112345678
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NormalizeEmail trims and lower-cases an email so uniqueness is case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User holds the structure for the users collection in mongo
type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Surname      string             `json:"surname,omitempty" bson:"surname,omitempty"`
	Email        string             `json:"email" bson:"email"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	PushToken    string             `json:"pushToken,omitempty" bson:"pushToken,omitempty"`
	BirthDate    *time.Time         `json:"birthDate,omitempty" bson:"birthDate,omitempty"`
	Status       string             `json:"status" bson:"status"`
	PasswordHash string             `json:"-" bson:"password,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the subset of a user inlined into treatment responses and
// used to address reminders
type UserSummary struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Surname   string             `json:"surname,omitempty" bson:"surname,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	PushToken string             `json:"pushToken,omitempty" bson:"pushToken,omitempty"`
}
