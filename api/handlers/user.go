package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/models"
)

// User exists for dependency injection purposes
type User struct {
	DB  databases.UserDatabase
	Now func() time.Time
}

type createUserRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=50"`
	Surname   string `json:"surname" validate:"omitempty,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	PushToken string `json:"pushToken" validate:"omitempty,startswith=ExponentPushToken[,endswith=]"`
	BirthDate string `json:"birthDate"`
	Status    string `json:"status" validate:"omitempty,oneof=active inactive blocked"`
	Password  string `json:"password" validate:"omitempty,min=6"`
}

// trim strips surrounding whitespace from the text fields before validation
func (req *createUserRequest) trim() {
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.PushToken = strings.TrimSpace(req.PushToken)
}

// CreateUserHandler registers a new user
func (u User) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, "invalid user", err)
		return
	}
	req.trim()
	if err := validateStruct(&req); err != nil {
		writeError(w, r, "invalid user", err)
		return
	}

	birthDate, err := parseOptionalDate("birthDate", req.BirthDate)
	if err != nil {
		writeError(w, r, "invalid user", err)
		return
	}

	now := u.Now()
	user := &models.User{
		Name:      req.Name,
		Surname:   req.Surname,
		Email:     models.NormalizeEmail(req.Email),
		Phone:     req.Phone,
		PushToken: req.PushToken,
		BirthDate: birthDate,
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.Status == "" {
		user.Status = models.UserActive
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, r, "failed to hash password", err)
			return
		}
		user.PasswordHash = string(hash)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := u.DB.Create(ctx, user); err != nil {
		writeError(w, r, "failed to create user", err)
		return
	}
	zap.S().Infow("user created", "user", user.ID.Hex())

	created(w, "user created", user)
}

// UsersHandler lists users, optionally paginated with ?limit= and ?page=
func (u User) UsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.List(ctx, pageFromQuery(r))
	if err != nil {
		writeError(w, r, "failed to get users", err)
		return
	}
	list(w, users, len(users))
}

// UserHandler returns a user by id
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := databases.ObjectID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, "invalid user id", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindByID(ctx, id)
	if err != nil {
		writeError(w, r, "failed to get user", err)
		return
	}
	ok(w, "", user)
}
