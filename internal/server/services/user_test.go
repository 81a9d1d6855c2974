package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkovalenko/contactbook/internal/common"
	"github.com/dkovalenko/contactbook/internal/dbx"
	"github.com/dkovalenko/contactbook/internal/server/auth"
	"github.com/dkovalenko/contactbook/internal/server/config"
	"github.com/dkovalenko/contactbook/internal/server/models"
	contactsrepo "github.com/dkovalenko/contactbook/internal/server/repositories/contacts"
	usersrepo "github.com/dkovalenko/contactbook/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	lastGetEmail string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "generated"
	u.IsActive = true
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.lastGetEmail = email
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeContactsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contactsrepo.Repository { return m.c }

func activeUser(email, password string, t *testing.T) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return &models.User{ID: "u1", Email: email, PasswordHash: hash, IsActive: true}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := newUserService(t, db, rm)

	u, err := s.Register(context.Background(), "  Alice@Example.COM ", "pw")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "pw" || u.PasswordHash == "" {
		t.Fatalf("password must be stored hashed, got %q", u.PasswordHash)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrorAlreadyExists}}
	s := newUserService(t, db, rm)

	_, err := s.Register(context.Background(), "alice@example.com", "pw")
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := newUserService(t, db, rm)

	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"not-an-email", "pw"},
		{"alice@example.com", ""},
	} {
		if _, err := s.Register(context.Background(), tc.email, tc.password); !errors.Is(err, common.ErrorValidation) {
			t.Fatalf("(%q, %q): want common.ErrorValidation, got %v", tc.email, tc.password, err)
		}
	}
}

// --- Login ---

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// not found → unauthorized
	rmNF := &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}}
	sNF := newUserService(t, db, rmNF)
	if _, err := sNF.Login(context.Background(), "ghost@example.com", "x"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("notfound: want unauthorized, got %v", err)
	}

	// internal error
	rmIE := &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom{}}}
	sIE := newUserService(t, db, rmIE)
	if _, err := sIE.Login(context.Background(), "u@example.com", "x"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("internal: want ErrorInternal, got %v", err)
	}

	// wrong password → unauthorized
	rmWP := &fakeRepoManager{u: &fakeUsersRepo{getOut: activeUser("u@example.com", "right", t)}}
	sWP := newUserService(t, db, rmWP)
	if _, err := sWP.Login(context.Background(), "u@example.com", "wrong"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("wrong password: want unauthorized, got %v", err)
	}

	// inactive user → unauthorized
	inactive := activeUser("u@example.com", "right", t)
	inactive.IsActive = false
	rmIA := &fakeRepoManager{u: &fakeUsersRepo{getOut: inactive}}
	sIA := newUserService(t, db, rmIA)
	if _, err := sIA.Login(context.Background(), "u@example.com", "right"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("inactive: want unauthorized, got %v", err)
	}

	// success
	rmOK := &fakeRepoManager{u: &fakeUsersRepo{getOut: activeUser("u@example.com", "right", t)}}
	sOK := newUserService(t, db, rmOK)
	pair, err := sOK.Login(context.Background(), "u@example.com", "right")
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Login success: pair=%+v err=%v", pair, err)
	}
}

func TestLogin_TokenResolvesToSubject(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getOut: activeUser("u@example.com", "right", t)}}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "u@example.com", "right")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	subject, err := auth.GetSubjectFromToken(pair.AccessToken, auth.TokenTypeAccess, []byte("k"))
	if err != nil || subject != "u@example.com" {
		t.Fatalf("access token must resolve to its subject: (%q, %v)", subject, err)
	}
	subject, err = auth.GetSubjectFromToken(pair.RefreshToken, auth.TokenTypeRefresh, []byte("k"))
	if err != nil || subject != "u@example.com" {
		t.Fatalf("refresh token must resolve to its subject: (%q, %v)", subject, err)
	}
}

// --- Refresh ---

func TestRefresh_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	user := activeUser("u@example.com", "right", t)
	rm := &fakeRepoManager{u: &fakeUsersRepo{getOut: user}}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "u@example.com", "right")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// valid refresh token → new pair
	fresh, err := s.Refresh(context.Background(), pair.RefreshToken)
	if err != nil || fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatalf("Refresh success: pair=%+v err=%v", fresh, err)
	}

	// access token is not accepted as refresh token
	if _, err := s.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("access-as-refresh: want unauthorized, got %v", err)
	}

	// garbage token
	if _, err := s.Refresh(context.Background(), "garbage"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("garbage: want unauthorized, got %v", err)
	}

	// subject no longer resolves
	rm.u.getErr = common.ErrorNotFound
	if _, err := s.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("deleted user: want unauthorized, got %v", err)
	}
}

// --- Authenticate ---

func TestAuthenticate_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	user := activeUser("u@example.com", "right", t)
	rm := &fakeRepoManager{u: &fakeUsersRepo{getOut: user}}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "u@example.com", "right")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// valid access token → the user it was issued for
	got, err := s.Authenticate(context.Background(), pair.AccessToken)
	if err != nil || got.ID != user.ID {
		t.Fatalf("Authenticate success: got=%+v err=%v", got, err)
	}
	if rm.u.lastGetEmail != "u@example.com" {
		t.Fatalf("lookup must use token subject, got %q", rm.u.lastGetEmail)
	}

	// refresh token is not accepted as access token
	if _, err := s.Authenticate(context.Background(), pair.RefreshToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("refresh-as-access: want unauthorized, got %v", err)
	}

	// expired token
	expired, err := auth.GenerateToken("u@example.com", auth.TokenTypeAccess, []byte("k"), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, err := s.Authenticate(context.Background(), expired); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expired: want unauthorized, got %v", err)
	}

	// tampered token
	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
	if _, err := s.Authenticate(context.Background(), tampered); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("tampered: want unauthorized, got %v", err)
	}

	// inactive user
	user.IsActive = false
	if _, err := s.Authenticate(context.Background(), pair.AccessToken); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("inactive: want unauthorized, got %v", err)
	}
}
