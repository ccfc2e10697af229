package auth

import (
	"cagchat/internal/database"
	"cagchat/internal/utils"
	"context"
	"fmt"
)

type SignupRequest struct {
	Name     string
	Email    string
	Country  string
	Password string
	Purpose  *string
}

// Service owns signup and credential checks on top of a UserRepository.
type Service struct {
	users  database.UserRepository
	hasher *Hasher
	tokens *TokenService

	// dummyDigest is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyDigest string
}

func NewService(users database.UserRepository, hasher *Hasher, tokens *TokenService) (*Service, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, dummyDigest: dummy}, nil
}

// Signup hashes the password and stores the user. The plaintext is not kept.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (utils.User, error) {
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return utils.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.Create(ctx, database.NewUser{
		Name:           req.Name,
		Email:          req.Email,
		Country:        req.Country,
		PasswordDigest: digest,
		Purpose:        req.Purpose,
	})
}

// Authenticate returns the user only when email and password match. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (utils.User, bool) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.hasher.Verify(password, s.dummyDigest)
		return utils.User{}, false
	}
	if !s.hasher.Verify(password, user.PasswordDigest) {
		return utils.User{}, false
	}
	return user, true
}

func (s *Service) IssueToken(user utils.User) (string, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Email)
	return token, err
}
