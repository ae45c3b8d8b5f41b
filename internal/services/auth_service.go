package services

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/repos"
	"github.com/parvezdia/textile-waste-management/internal/validate"
)

// ErrBadCreds is deliberately the same for unknown email and wrong
// password.
var ErrBadCreds = errors.New("invalid email or password")

// AuthService handles registration, login and session lookup.
type AuthService struct {
	DB     *sqlx.DB
	Users  *repos.UserRepo
	Notify NotificationGateway
}

func NewAuthService(db *sqlx.DB, users *repos.UserRepo, notify NotificationGateway) *AuthService {
	return &AuthService{DB: db, Users: users, Notify: notify}
}

// Login checks credentials and binds the session to the user.
func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBadCreds
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// CurrentUser resolves the user behind a session id.
func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

// Logout drops the session binding.
func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     string

	// Factory fields.
	FactoryName string
	Location    string
}

// Register creates a user and its role profile in one transaction. New
// designers start unapproved; admins are never self-registrable.
func (s *AuthService) Register(in RegisterInput) (*domain.User, error) {
	email, ok := validate.Email(in.Email)
	if !ok {
		return nil, domain.Validationf("invalid email")
	}
	name, ok := validate.Name(in.Name)
	if !ok {
		return nil, domain.Validationf("invalid name")
	}
	if !validate.Password(in.Password) {
		return nil, domain.Validationf("password must be 8-20 chars with upper, lower, digit and symbol")
	}
	switch in.Role {
	case domain.RoleFactory, domain.RoleDesigner, domain.RoleBuyer:
	default:
		return nil, domain.Validationf("invalid role %q", in.Role)
	}

	if _, err := s.Users.ByEmail(email); err == nil {
		return nil, domain.Validationf("email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:    newID("USR"),
		Email: email,
		Name:  name,
		Hash:  string(hash),
		Role:  in.Role,
	}
	err = repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		if err := s.Users.Insert(tx, u); err != nil {
			return err
		}
		switch in.Role {
		case domain.RoleFactory:
			return s.Users.InsertFactoryProfile(tx, &domain.FactoryProfile{
				UserID:             u.ID,
				FactoryName:        in.FactoryName,
				Location:           in.Location,
				CertificationsJSON: "[]",
			})
		case domain.RoleDesigner:
			return s.Users.InsertDesignerProfile(tx, &domain.DesignerProfile{UserID: u.ID})
		case domain.RoleBuyer:
			return s.Users.InsertBuyerProfile(tx, &domain.BuyerProfile{UserID: u.ID, PreferencesJSON: "{}"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ApproveDesigner marks a designer as approved, unlocking design creation.
func (s *AuthService) ApproveDesigner(userID string) error {
	u, err := s.Users.ByID(userID)
	if err != nil {
		return err
	}
	if u.Role != domain.RoleDesigner {
		return domain.Validationf("user %s is not a designer", userID)
	}
	if err := s.Users.ApproveDesigner(userID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if s.Notify != nil {
		s.Notify.Notify(userID, domain.NotifyAccount, "Your designer account has been approved")
	}
	return nil
}
