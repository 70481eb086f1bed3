package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/pillapp/pillapp-api/api/handlers"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/databases/mocks"
	"github.com/pillapp/pillapp-api/models"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }

func TestCreateUserHandler(t *testing.T) {
	db := mocks.NewUserDatabase(t)
	u := handlers.User{DB: db, Now: fixedNow}

	var stored *models.User
	db.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.User) }).
		Return(nil)

	body := `{"name":" Ana ","surname":"Gomez","email":" Ana@Example.COM ","phone":" +5491112345678 ","birthDate":"1990-04-02","password":"secret1"}`
	rr := serve(u.CreateUserHandler, newRequest(t, http.MethodPost, "/api/v1/users", body))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "user created", envelope(t, rr).Message)
	assert.NotContains(t, rr.Body.String(), "secret1")
	assert.NotContains(t, rr.Body.String(), "password")

	require.NotNil(t, stored)
	assert.Equal(t, "Ana", stored.Name)
	assert.Equal(t, "ana@example.com", stored.Email)
	assert.Equal(t, "+5491112345678", stored.Phone)
	assert.Equal(t, models.UserActive, stored.Status)
	require.NotNil(t, stored.BirthDate)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	assert.Equal(t, fixedNow(), stored.CreatedAt)
}

func TestCreateUserHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errors []string
	}{
		{
			name:   "missing email",
			body:   `{"name":"Ana"}`,
			errors: []string{"email is required"},
		},
		{
			name:   "bad email and short name",
			body:   `{"name":"A","email":"not-an-email"}`,
			errors: []string{"name must be at least 2 characters", "email must be a valid email address"},
		},
		{
			name:   "name too short once trimmed",
			body:   `{"name":"  A  ","email":"ana@example.com"}`,
			errors: []string{"name must be at least 2 characters"},
		},
		{
			name:   "local phone number",
			body:   `{"name":"Ana","email":"ana@example.com","phone":"1112345678"}`,
			errors: []string{"phone must be an international phone number such as +5491112345678"},
		},
		{
			name:   "unknown status",
			body:   `{"name":"Ana","email":"ana@example.com","status":"deleted"}`,
			errors: []string{"status must be one of: active, inactive, blocked"},
		},
		{
			name:   "broken json",
			body:   `{"name":`,
			errors: []string{"invalid JSON body: unexpected EOF"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := handlers.User{DB: mocks.NewUserDatabase(t), Now: fixedNow}

			rr := serve(u.CreateUserHandler, newRequest(t, http.MethodPost, "/api/v1/users", tt.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := envelope(t, rr)
			assert.False(t, body.Success)
			assert.Equal(t, tt.errors, body.Errors)
		})
	}
}

func TestCreateUserHandlerDuplicateEmail(t *testing.T) {
	db := mocks.NewUserDatabase(t)
	u := handlers.User{DB: db, Now: fixedNow}
	db.On("Create", mock.Anything, mock.Anything).Return(&models.ConflictError{Message: "a user with that email already exists"})

	rr := serve(u.CreateUserHandler, newRequest(t, http.MethodPost, "/api/v1/users", `{"name":"Ana","email":"ana@example.com"}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "a user with that email already exists", envelope(t, rr).Message)
}

func TestUsersHandlerPagination(t *testing.T) {
	db := mocks.NewUserDatabase(t)
	u := handlers.User{DB: db, Now: fixedNow}
	db.On("List", mock.Anything, databases.Page{Limit: 10, Page: 2}).Return([]models.User{{}, {}, {}}, nil)

	rr := serve(u.UsersHandler, newRequest(t, http.MethodGet, "/api/v1/users?limit=10&page=2", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	body := envelope(t, rr)
	require.NotNil(t, body.Count)
	assert.Equal(t, 3, *body.Count)
}

func TestUserHandler(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		u := handlers.User{DB: mocks.NewUserDatabase(t), Now: fixedNow}
		req := withVars(newRequest(t, http.MethodGet, "/api/v1/users/asdf", ""), map[string]string{"id": "asdf"})

		rr := serve(u.UserHandler, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		db := mocks.NewUserDatabase(t)
		u := handlers.User{DB: db, Now: fixedNow}
		id := primitive.NewObjectID()
		db.On("FindByID", mock.Anything, id).Return(nil, models.NewNotFoundError("user not found"))

		req := withVars(newRequest(t, http.MethodGet, "/api/v1/users/"+id.Hex(), ""), map[string]string{"id": id.Hex()})
		rr := serve(u.UserHandler, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "user not found", envelope(t, rr).Message)
	})

	t.Run("found", func(t *testing.T) {
		db := mocks.NewUserDatabase(t)
		u := handlers.User{DB: db, Now: fixedNow}
		id := primitive.NewObjectID()
		db.On("FindByID", mock.Anything, id).Return(&models.User{ID: id, Name: "Ana", PasswordHash: "$2a$hash"}, nil)

		req := withVars(newRequest(t, http.MethodGet, "/api/v1/users/"+id.Hex(), ""), map[string]string{"id": id.Hex()})
		rr := serve(u.UserHandler, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "$2a$hash")
	})
}
