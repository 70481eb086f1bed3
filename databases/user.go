package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pillapp/pillapp-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, page Page) ([]models.User, error)
	EnsureIndexes(ctx context.Context) error
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

// Create inserts a new user. A taken email yields a ConflictError.
func (u *userDatabase) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := u.db.Collection(userName).InsertOne(ctx, user)
	if err != nil {
		return duplicate(err, "email is already registered")
	}
	return nil
}

func (u *userDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, bson.M{"_id": id}).Decode(user)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (u *userDatabase) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(user)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (u *userDatabase) List(ctx context.Context, page Page) ([]models.User, error) {
	cursor, err := u.db.Collection(userName).Find(ctx, bson.M{}, page.findOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// EnsureIndexes creates the unique email index
func (u *userDatabase) EnsureIndexes(ctx context.Context) error {
	return u.db.Collection(userName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
}
