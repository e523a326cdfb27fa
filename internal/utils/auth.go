package utils

import (
  "context"
  "crypto/rand"
  "fmt"
  "math/big"
  "unicode"

  "golang.org/x/crypto/bcrypt"

  "github.com/classpoint/classpoint-backend/internal/logger"
  "github.com/classpoint/classpoint-backend/internal/normalization"
  "github.com/classpoint/classpoint-backend/internal/repos"
  "github.com/classpoint/classpoint-backend/internal/types"
)

func InputValidation(ctx context.Context, ffor string, userRepo repos.UserRepo, log *logger.Logger, user *types.User, email, password string) error {
  validatedFor := normalization.ParseInputString(ffor)
  if validatedFor == "" {
    return fmt.Errorf("For string is nil, needs to be login or registration")
  }
  switch validatedFor {
  case "registration":
    if err := handleRegisterInputValidation(ctx, userRepo, log, user); err != nil {
      return err
    }
  case "login":
    if err := handleLoginInputValidation(ctx, log, email, password); err != nil {
      return err
    }
  }
  return nil
}

func handleRegisterInputValidation(ctx context.Context, userRepo repos.UserRepo, log *logger.Logger, user *types.User) error {
  if user == nil {
    return fmt.Errorf("No user given, cannot proceed with registration")
  }
  if user.Username == "" {
    return fmt.Errorf("A username is required to register")
  }
  usernameExists, err := userRepo.UsernameExists(ctx, nil, user.Username)
  if err != nil {
    return fmt.Errorf("Failed to check username")
  }
  if usernameExists {
    return fmt.Errorf("Username is already taken")
  }
  if user.Email == "" {
    return fmt.Errorf("An email is required to register")
  }
  emailExists, err := userRepo.EmailExists(ctx, nil, user.Email)
  if err != nil {
    return fmt.Errorf("Failed to check user email")
  }
  if emailExists {
    return fmt.Errorf("Email is already in use")
  }
  if user.Password == "" {
    return fmt.Errorf("A password is required to register")
  }
  if !IsPasswordStrong(user.Password) {
    return fmt.Errorf("Password is too weak. Must contain at least 8 characters, one uppercase letter, one number, and one special character")
  }
  return nil
}

func handleLoginInputValidation(ctx context.Context, log *logger.Logger, email, password string) error {
  if email == "" {
    return fmt.Errorf("Email is required to login")
  }
  if password == "" {
    return fmt.Errorf("Password is required to login")
  }
  return nil
}

func IsPasswordStrong(password string) bool {
  if len(password) < 8 {
    return false
  }
  var hasUpper, hasDigit, hasSpecial bool
  for _, r := range password {
    switch {
    case unicode.IsUpper(r):
      hasUpper = true
    case unicode.IsDigit(r):
      hasDigit = true
    case unicode.IsPunct(r) || unicode.IsSymbol(r):
      hasSpecial = true
    }
  }
  return hasUpper && hasDigit && hasSpecial
}

func HashPassword(ctx context.Context, log *logger.Logger, user *types.User) error {
  hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
  if err != nil {
    return fmt.Errorf("Failed to hash password")
  }
  user.Password = string(hashedPassword)
  return nil
}

func NormalizeUserFields(ctx context.Context, user *types.User) {
  user.Email = normalization.ParseInputString(user.Email)
  user.Username = normalization.ParseInputString(user.Username)
}

// GenerateConfirmationCode returns a 6 digit numeric code as a string.
func GenerateConfirmationCode() (string, error) {
  n, err := rand.Int(rand.Reader, big.NewInt(900000))
  if err != nil {
    return "", fmt.Errorf("Failed to generate confirmation code: %w", err)
  }
  return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
