package services

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("access denied")

	ErrTaskNotFound          = errors.New("task not found")
	ErrShipmentNotFound      = errors.New("shipment not found")
	ErrNoFieldsToUpdate      = errors.New("no fields to update")
	ErrInvalidTaskStatus     = errors.New("invalid task status")
	ErrInvalidShipmentStatus = errors.New("invalid shipment status")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrInvalidWeight         = errors.New("invalid weight")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type AuthService interface {
	// Register creates an active user with the given credentials.
	//
	// The password is hashed with argon2id before it is stored. The user
	// is granted the admin role when the username is configured as one.
	//
	// It returns ErrUserAlreadyExists if the username is taken.
	Register(ctx context.Context, params RegisterParams) (*models.User, error)

	// Login verifies the credentials and issues a signed access token.
	//
	// It returns ErrInvalidCredentials for an unknown username, a wrong
	// password or an inactive user alike.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Authenticate parses the access token and loads the user it was
	// issued to. It returns ErrInvalidToken if the token is malformed,
	// expired or signed for a user that no longer exists or is inactive.
	Authenticate(ctx context.Context, token string) (*models.User, error)

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or an error wrapping jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type TaskService interface {
	Get(ctx context.Context, actor Actor, id string) (*models.Task, error)
	List(ctx context.Context, actor Actor, params ListTasksParams) ([]*models.Task, error)
	Create(ctx context.Context, actor Actor, params CreateTaskParams) (*models.Task, error)

	// Update applies only the non-nil fields of params.
	Update(ctx context.Context, actor Actor, id string, params UpdateTaskParams) (*models.Task, error)

	// Archive soft-deletes the task by moving it to the archived status.
	Archive(ctx context.Context, actor Actor, id string) (*models.Task, error)

	BulkCreate(ctx context.Context, actor Actor, params []CreateTaskParams) ([]*models.Task, error)
	BulkUpdateStatus(ctx context.Context, actor Actor, ids []string, status models.TaskStatus) ([]*models.Task, error)
	Statistics(ctx context.Context, actor Actor) (*models.TaskStatistics, error)
}

type ShipmentService interface {
	Get(ctx context.Context, actor Actor, id string) (*models.Shipment, error)
	List(ctx context.Context, actor Actor, params ListShipmentsParams) ([]*models.Shipment, error)
	Create(ctx context.Context, actor Actor, params CreateShipmentParams) (*models.Shipment, error)
	Update(ctx context.Context, actor Actor, id string, params UpdateShipmentParams) (*models.Shipment, error)
	Archive(ctx context.Context, actor Actor, id string) (*models.Shipment, error)
	BulkCreate(ctx context.Context, actor Actor, params []CreateShipmentParams) ([]*models.Shipment, error)
	BulkUpdateStatus(ctx context.Context, actor Actor, ids []string, status models.ShipmentStatus) ([]*models.Shipment, error)
	Statistics(ctx context.Context, actor Actor) (*models.ShipmentStatistics, error)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

func ActorFromUser(user *models.User) Actor {
	return Actor{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
	}
}

func (a Actor) canAccess(ownerID string) bool {
	return a.IsAdmin || a.UserID == ownerID
}

// ownerScope resolves the owner filter of a listing. Admins may list
// anyone's items, everyone else only their own.
func (a Actor) ownerScope(requested string) (string, error) {
	if a.IsAdmin {
		return requested, nil
	}
	if requested == "" || requested == a.UserID {
		return a.UserID, nil
	}
	return "", ErrForbidden
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

type LoginParams struct {
	Username string
	Password string
}

type LoginResult struct {
	User                 *models.User
	AccessToken          string
	AccessTokenExpiresAt time.Time
}

type CreateTaskParams struct {
	Title       string
	Description string
	Priority    models.Priority
	DueDate     *time.Time
}

type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.Priority
	DueDate     *time.Time
}

func (p UpdateTaskParams) empty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Status == nil &&
		p.Priority == nil &&
		p.DueDate == nil
}

type ListTasksParams struct {
	OwnerID   string
	Status    models.TaskStatus
	Priority  models.Priority
	DueAfter  *time.Time
	DueBefore *time.Time
	Query     string
	Offset    uint64
	Limit     uint64
}

type CreateShipmentParams struct {
	Content     string
	Weight      float64
	Destination int
	Priority    models.Priority
}

type UpdateShipmentParams struct {
	Content           *string
	Weight            *float64
	Destination       *int
	Status            *models.ShipmentStatus
	Priority          *models.Priority
	EstimatedDelivery *time.Time
}

func (p UpdateShipmentParams) empty() bool {
	return p.Content == nil &&
		p.Weight == nil &&
		p.Destination == nil &&
		p.Status == nil &&
		p.Priority == nil &&
		p.EstimatedDelivery == nil
}

type ListShipmentsParams struct {
	OwnerID        string
	Status         models.ShipmentStatus
	Priority       models.Priority
	Destination    int
	MinWeight      *float64
	MaxWeight      *float64
	DeliveryAfter  *time.Time
	DeliveryBefore *time.Time
	Query          string
	Offset         uint64
	Limit          uint64
}

// Options configure the services of a Set.
type Options struct {
	JWTIssuer         string
	JWTSigningKey     []byte
	JWTAccessTokenTTL time.Duration
	AdminUsernames    []string
	// PasswordParams defaults to argon2id.DefaultParams.
	PasswordParams *argon2id.Params
	// Now defaults to time.Now.
	Now func() time.Time
}

// Set bundles the services bound to one request session.
type Set struct {
	Auth      AuthService
	Tasks     TaskService
	Shipments ShipmentService
}

func NewSet(logger zerolog.Logger, repos repository.Repositories, opts Options) *Set {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PasswordParams == nil {
		opts.PasswordParams = argon2id.DefaultParams
	}
	return &Set{
		Auth:      NewAuthService(logger, repos.Users, opts),
		Tasks:     NewTaskService(logger, repos.Tasks, opts.Now),
		Shipments: NewShipmentService(logger, repos.Shipments, opts.Now),
	}
}

// nextTimestamp returns now at database precision, forced past prev so
// that consecutive writes always move updated_at forward.
func nextTimestamp(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func clampLimit(limit uint64) uint64 {
	if limit == 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
