package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/michellelee0718/porespective/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
)

// AccountService stores local-auth credentials in Mongo. It is only wired
// when the deployment runs with AUTH_MODE=local.
type AccountService struct {
	accountsCol *mongo.Collection
}

func NewAccountService(db *mongo.Database) *AccountService {
	return &AccountService{
		accountsCol: db.Collection("accounts"),
	}
}

func (s *AccountService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	count, err := s.accountsCol.CountDocuments(ctx, bson.M{"email": req.Email})
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Name:         req.Name,
		CreatedAt:    time.Now(),
	}

	if _, err := s.accountsCol.InsertOne(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest) (*models.Account, error) {
	var account models.Account
	err := s.accountsCol.FindOne(ctx, bson.M{"email": req.Email}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return &account, nil
}

func (s *AccountService) GetByID(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	err := s.accountsCol.FindOne(ctx, bson.M{"_id": userID}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Delete removes the credential record. The caller is responsible for also
// deleting the user document.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.accountsCol.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
