package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carpool-safety/internal/auth-service/core/domain/dto"
	"carpool-safety/internal/auth-service/core/domain/models"
	"carpool-safety/internal/auth-service/core/myerrors"
	"carpool-safety/internal/auth-service/core/ports"
	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"

	"github.com/golang-jwt/jwt"
)

const tokenTTL = 24 * 7 * time.Hour

type AuthService struct {
	ctx      context.Context
	cfg      *config.Config
	authRepo ports.IAuthRepo
	mylog    mylogger.Logger
}

func NewAuthService(
	ctx context.Context,
	cfg *config.Config,
	authRepo ports.IAuthRepo,
	mylog mylogger.Logger,
) *AuthService {
	return &AuthService{
		ctx:      ctx,
		cfg:      cfg,
		authRepo: authRepo,
		mylog:    mylog,
	}
}

// Register creates a passenger or admin account. Drivers go through
// RegisterDriver so their vehicle data and enforcement row come along.
func (as *AuthService) Register(ctx context.Context, regReq dto.UserRegistrationRequest) (string, string, error) {
	mylog := as.mylog.Action("Register")

	if err := validateRegistration(regReq.Username, regReq.Email, regReq.Password); err != nil {
		return "", "", err
	}
	if !AllowedRoles[regReq.Role] || regReq.Role == "DRIVER" {
		return "", "", myerrors.ErrInvalidRole
	}

	hashedPassword, err := hashPassword(regReq.Password)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %v", err)
	}
	user := models.User{
		Username:     regReq.Username,
		Email:        regReq.Email,
		PasswordHash: hashedPassword,
		Role:         regReq.Role,
	}

	id, err := as.authRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, myerrors.ErrUsernameTaken) || errors.Is(err, myerrors.ErrEmailRegistered) {
			mylog.Warn("Failed to register", "reason", err.Error())
			return "", "", err
		}
		mylog.Error("Failed to save user in db", err)
		return "", "", fmt.Errorf("cannot save user in db: %w", err)
	}

	accessToken, err := as.issueToken(id, regReq.Email, regReq.Role)
	if err != nil {
		mylog.Error("error to create jwt token", err)
		return "", "", err
	}

	mylog.Info("User registered successfully", "user_id", id, "role", regReq.Role)
	return id, accessToken, nil
}

// RegisterDriver creates a driver account together with its enforcement row,
// so the safety service knows the driver the moment the token is issued.
func (as *AuthService) RegisterDriver(ctx context.Context, regReq dto.DriverRegistrationRequest) (string, string, error) {
	mylog := as.mylog.Action("RegisterDriver")

	if err := validateRegistration(regReq.Username, regReq.Email, regReq.Password); err != nil {
		return "", "", err
	}
	if err := validateDriverRegistration(regReq.LicenseNumber, regReq.VehicleType); err != nil {
		return "", "", err
	}

	hashedPassword, err := hashPassword(regReq.Password)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %v", err)
	}

	attrs := map[string]any{
		"license_number": regReq.LicenseNumber,
		"vehicle_type":   regReq.VehicleType,
	}
	if len(regReq.VehicleAttrs) > 0 {
		attrs["vehicle_attrs"] = regReq.VehicleAttrs
	}
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode driver attrs: %v", err)
	}

	user := models.User{
		Username:     regReq.Username,
		Email:        regReq.Email,
		PasswordHash: hashedPassword,
		Role:         "DRIVER",
		Attrs:        attrsJSON,
	}

	id, err := as.authRepo.CreateDriver(ctx, user)
	if err != nil {
		if errors.Is(err, myerrors.ErrUsernameTaken) || errors.Is(err, myerrors.ErrEmailRegistered) {
			mylog.Warn("Failed to register driver", "reason", err.Error())
			return "", "", err
		}
		mylog.Error("Failed to save driver in db", err)
		return "", "", fmt.Errorf("cannot save driver in db: %w", err)
	}

	accessToken, err := as.issueToken(id, regReq.Email, "DRIVER")
	if err != nil {
		mylog.Error("error to create jwt token", err)
		return "", "", err
	}

	mylog.Info("Driver registered successfully", "user_id", id)
	return id, accessToken, nil
}

func (as *AuthService) Login(ctx context.Context, authReq dto.UserAuthRequest) (string, error) {
	mylog := as.mylog.Action("Login")

	if err := validateLogin(authReq.Email, authReq.Password); err != nil {
		return "", err
	}

	user, err := as.authRepo.GetByEmail(ctx, authReq.Email)
	if err != nil {
		if errors.Is(err, myerrors.ErrUnknownEmail) {
			mylog.Warn("Failed to login, unknown email")
			return "", err
		}
		mylog.Error("Failed to read user from db", err)
		return "", fmt.Errorf("cannot read user from db: %w", err)
	}

	if !checkPassword(user.PasswordHash, authReq.Password) {
		mylog.Debug("Failed to login, wrong password")
		return "", myerrors.ErrPasswordUnknown
	}

	accessToken, err := as.issueToken(user.UserId, authReq.Email, user.Role)
	if err != nil {
		mylog.Error("error to create jwt token", err)
		return "", err
	}

	mylog.Info("User login successfully", "user_id", user.UserId)
	return accessToken, nil
}

func (as *AuthService) issueToken(userId, email, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString([]byte(as.cfg.App.PublicJwtSecret))
}
