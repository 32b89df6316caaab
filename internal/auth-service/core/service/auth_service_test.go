package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"carpool-safety/internal/auth-service/core/domain/dto"
	"carpool-safety/internal/auth-service/core/domain/models"
	"carpool-safety/internal/auth-service/core/myerrors"
	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"

	"github.com/golang-jwt/jwt"
)

const testSecret = "carpool-test-secret"

type fakeAuthRepo struct {
	users     map[string]models.User // keyed by email
	driverIds []string               // users provisioned with an enforcement row
	nextId    int
	createErr error
	getErr    error
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: make(map[string]models.User)}
}

// create mirrors the unique constraints of the users table. Username
// collisions are reported before email collisions, like the pg error mapping.
func (f *fakeAuthRepo) create(user models.User) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return "", myerrors.ErrUsernameTaken
		}
	}
	if _, ok := f.users[user.Email]; ok {
		return "", myerrors.ErrEmailRegistered
	}
	f.nextId++
	user.UserId = fmt.Sprintf("user-%d", f.nextId)
	f.users[user.Email] = user
	return user.UserId, nil
}

func (f *fakeAuthRepo) CreateUser(ctx context.Context, user models.User) (string, error) {
	return f.create(user)
}

func (f *fakeAuthRepo) CreateDriver(ctx context.Context, user models.User) (string, error) {
	id, err := f.create(user)
	if err == nil {
		f.driverIds = append(f.driverIds, id)
	}
	return id, err
}

func (f *fakeAuthRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if f.getErr != nil {
		return models.User{}, f.getErr
	}
	u, ok := f.users[email]
	if !ok {
		return models.User{}, myerrors.ErrUnknownEmail
	}
	return u, nil
}

func newTestService() (*AuthService, *fakeAuthRepo) {
	repo := newFakeAuthRepo()
	cfg := &config.Config{App: &config.Appconfig{PublicJwtSecret: testSecret}}
	log, _ := mylogger.New(mylogger.LevelError)
	return NewAuthService(context.Background(), cfg, repo, log), repo
}

func parseClaims(t *testing.T, accessToken string) jwt.MapClaims {
	t.Helper()
	token, err := jwt.Parse(accessToken, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token did not parse: %v, valid=%v", err, token != nil && token.Valid)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims are %T, want jwt.MapClaims", token.Claims)
	}
	return claims
}

func TestRegisterValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	cases := []struct {
		name    string
		req     dto.UserRegistrationRequest
		wantErr error
	}{
		{"empty username", dto.UserRegistrationRequest{Email: "a@mail.com", Password: "secret", Role: "PASSENGER"}, myerrors.ErrFieldIsEmpty},
		{"empty email", dto.UserRegistrationRequest{Username: "ayan", Password: "secret", Role: "PASSENGER"}, myerrors.ErrFieldIsEmpty},
		{"empty password", dto.UserRegistrationRequest{Username: "ayan", Email: "a@mail.com", Role: "PASSENGER"}, myerrors.ErrFieldIsEmpty},
		{"unknown role", dto.UserRegistrationRequest{Username: "ayan", Email: "a@mail.com", Password: "secret", Role: "ROOT"}, myerrors.ErrInvalidRole},
		{"driver via plain register", dto.UserRegistrationRequest{Username: "ayan", Email: "a@mail.com", Password: "secret", Role: "DRIVER"}, myerrors.ErrInvalidRole},
	}
	for _, tc := range cases {
		if _, _, err := svc.Register(ctx, tc.req); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
	}

	rejected := []struct {
		name string
		req  dto.UserRegistrationRequest
	}{
		{"email without @", dto.UserRegistrationRequest{Username: "ayan", Email: "mail.com", Password: "secret", Role: "PASSENGER"}},
		{"email with two @", dto.UserRegistrationRequest{Username: "ayan", Email: "a@@mail.com", Password: "secret", Role: "PASSENGER"}},
		{"email too short", dto.UserRegistrationRequest{Username: "ayan", Email: "a@b", Password: "secret", Role: "PASSENGER"}},
		{"password too short", dto.UserRegistrationRequest{Username: "ayan", Email: "a@mail.com", Password: "pw", Role: "PASSENGER"}},
		{"password too long", dto.UserRegistrationRequest{Username: "ayan", Email: "a@mail.com", Password: strings.Repeat("x", MaxPasswordLen+1), Role: "PASSENGER"}},
	}
	for _, tc := range rejected {
		if _, _, err := svc.Register(ctx, tc.req); err == nil {
			t.Errorf("%s: err = nil, want rejection", tc.name)
		}
	}

	if len(repo.users) != 0 {
		t.Errorf("persisted %d users, want 0", len(repo.users))
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, repo := newTestService()

	id, accessToken, err := svc.Register(context.Background(), dto.UserRegistrationRequest{
		Username: "ayan",
		Email:    "ayan@mail.com",
		Password: "secret1",
		Role:     "PASSENGER",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == "" {
		t.Fatal("Register returned empty user id")
	}

	user := repo.users["ayan@mail.com"]
	if user.Role != "PASSENGER" {
		t.Errorf("role = %s, want PASSENGER", user.Role)
	}
	if !checkPassword(user.PasswordHash, "secret1") {
		t.Error("stored hash does not verify against the password")
	}
	if checkPassword(user.PasswordHash, "secret2") {
		t.Error("stored hash verifies against the wrong password")
	}

	claims := parseClaims(t, accessToken)
	if claims["user_id"] != id || claims["email"] != "ayan@mail.com" || claims["role"] != "PASSENGER" {
		t.Errorf("claims = %v, want user_id/email/role for the registered user", claims)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := dto.UserRegistrationRequest{Username: "ayan", Email: "ayan@mail.com", Password: "secret", Role: "PASSENGER"}
	if _, _, err := svc.Register(ctx, first); err != nil {
		t.Fatalf("Register: %v", err)
	}

	sameName := first
	sameName.Email = "other@mail.com"
	if _, _, err := svc.Register(ctx, sameName); !errors.Is(err, myerrors.ErrUsernameTaken) {
		t.Errorf("same username: err = %v, want ErrUsernameTaken", err)
	}

	sameEmail := first
	sameEmail.Username = "other"
	if _, _, err := svc.Register(ctx, sameEmail); !errors.Is(err, myerrors.ErrEmailRegistered) {
		t.Errorf("same email: err = %v, want ErrEmailRegistered", err)
	}
}

func TestRegisterRepoFailure(t *testing.T) {
	svc, repo := newTestService()
	errDB := errors.New("db down")
	repo.createErr = errDB

	_, _, err := svc.Register(context.Background(), dto.UserRegistrationRequest{
		Username: "ayan", Email: "ayan@mail.com", Password: "secret", Role: "PASSENGER",
	})
	if !errors.Is(err, errDB) {
		t.Fatalf("err = %v, want the repo failure wrapped", err)
	}
}

func TestRegisterDriverValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	base := dto.DriverRegistrationRequest{
		Username: "dana", Email: "dana@mail.com", Password: "secret",
		LicenseNumber: "KZ123456", VehicleType: "SEDAN",
	}

	noLicense := base
	noLicense.LicenseNumber = ""
	if _, _, err := svc.RegisterDriver(ctx, noLicense); !errors.Is(err, myerrors.ErrFieldIsEmpty) {
		t.Errorf("empty license: err = %v, want ErrFieldIsEmpty", err)
	}

	noVehicle := base
	noVehicle.VehicleType = ""
	if _, _, err := svc.RegisterDriver(ctx, noVehicle); !errors.Is(err, myerrors.ErrFieldIsEmpty) {
		t.Errorf("empty vehicle type: err = %v, want ErrFieldIsEmpty", err)
	}

	shortLicense := base
	shortLicense.LicenseNumber = "KZ12"
	if _, _, err := svc.RegisterDriver(ctx, shortLicense); err == nil {
		t.Error("short license: err = nil, want rejection")
	}

	longLicense := base
	longLicense.LicenseNumber = strings.Repeat("9", MaxLicenseLen+1)
	if _, _, err := svc.RegisterDriver(ctx, longLicense); err == nil {
		t.Error("long license: err = nil, want rejection")
	}

	if len(repo.users) != 0 || len(repo.driverIds) != 0 {
		t.Errorf("persisted %d users / %d driver rows, want none", len(repo.users), len(repo.driverIds))
	}
}

func TestRegisterDriverProvisionsEnforcementRow(t *testing.T) {
	svc, repo := newTestService()

	id, accessToken, err := svc.RegisterDriver(context.Background(), dto.DriverRegistrationRequest{
		Username:      "dana",
		Email:         "dana@mail.com",
		Password:      "secret1",
		LicenseNumber: "KZ123456",
		VehicleType:   "SEDAN",
		VehicleAttrs:  json.RawMessage(`{"seats":4}`),
	})
	if err != nil {
		t.Fatalf("RegisterDriver: %v", err)
	}

	if len(repo.driverIds) != 1 || repo.driverIds[0] != id {
		t.Errorf("driver rows = %v, want exactly [%s]", repo.driverIds, id)
	}

	user := repo.users["dana@mail.com"]
	if user.Role != "DRIVER" {
		t.Errorf("role = %s, want DRIVER", user.Role)
	}
	var attrs map[string]any
	if err := json.Unmarshal(user.Attrs, &attrs); err != nil {
		t.Fatalf("attrs did not decode: %v", err)
	}
	if attrs["license_number"] != "KZ123456" || attrs["vehicle_type"] != "SEDAN" {
		t.Errorf("attrs = %v, want license and vehicle type recorded", attrs)
	}
	if _, ok := attrs["vehicle_attrs"]; !ok {
		t.Errorf("attrs = %v, want vehicle_attrs carried through", attrs)
	}

	claims := parseClaims(t, accessToken)
	if claims["role"] != "DRIVER" {
		t.Errorf("token role = %v, want DRIVER", claims["role"])
	}
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	id, _, err := svc.Register(ctx, dto.UserRegistrationRequest{
		Username: "ayan", Email: "ayan@mail.com", Password: "secret1", Role: "PASSENGER",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	accessToken, err := svc.Login(ctx, dto.UserAuthRequest{Email: "ayan@mail.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims := parseClaims(t, accessToken)
	if claims["user_id"] != id || claims["role"] != "PASSENGER" {
		t.Errorf("claims = %v, want the registered user's id and role", claims)
	}

	if _, err := svc.Login(ctx, dto.UserAuthRequest{Email: "ghost@mail.com", Password: "secret1"}); !errors.Is(err, myerrors.ErrUnknownEmail) {
		t.Errorf("unknown email: err = %v, want ErrUnknownEmail", err)
	}
	if _, err := svc.Login(ctx, dto.UserAuthRequest{Email: "ayan@mail.com", Password: "secret2"}); !errors.Is(err, myerrors.ErrPasswordUnknown) {
		t.Errorf("wrong password: err = %v, want ErrPasswordUnknown", err)
	}

	// Malformed credentials never reach the repo.
	errDB := errors.New("db down")
	repo.getErr = errDB
	if _, err := svc.Login(ctx, dto.UserAuthRequest{Email: "nope", Password: "secret1"}); err == nil || errors.Is(err, errDB) {
		t.Errorf("malformed email: err = %v, want a validation error before the repo is hit", err)
	}
}
