package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/hlyanhtet/buildbooks_backend/config"
	"github.com/hlyanhtet/buildbooks_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"index" json:"company_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"password"`
	Role      UserRole  `gorm:"type:enum('field', 'pm', 'admin');default:field" json:"role"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	CompanyId string   `json:"company_id"`
	Username  string   `json:"username" binding:"required"`
	Name      string   `json:"name" binding:"required"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Password  string   `json:"password" binding:"required"`
	Role      UserRole `json:"role" binding:"required"`
	IsActive  *bool    `json:"is_active" binding:"required"`
}

/*
caches:
	User:$username
	Tokens:$username
*/

func (user User) RemoveInstanceRedis() error {
	if err := config.RemoveRedisKey("User:" + user.Username); err != nil {
		return err
	}
	return nil
}

type LoginInfo struct {
	Token       string   `json:"token"`
	Name        string   `json:"name"`
	Role        UserRole `json:"role"`
	CompanyId   string   `json:"company_id"`
	CompanyName string   `json:"company_name"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid user role %q", utils.ErrorValidation, input.Role)
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		CompanyId: input.CompanyId,
		Username:  html.EscapeString(strings.TrimSpace(input.Username)),
		Name:      input.Name,
		Email:     utils.NilOrElse(input.Email == "", input.Email),
		Phone:     input.Phone,
		Password:  string(hashed),
		Role:      input.Role,
		IsActive:  input.IsActive,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	// check login credentials. Any compare failure refuses the login,
	// including a malformed stored hash, never just a plain mismatch.
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return &result, errors.New("invalid username or password")
	}

	isActive := *user.IsActive
	if !isActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token, err := utils.JwtGenerate(user.ID, user.CompanyId, user.Username, string(user.Role))
	if err != nil {
		return &result, err
	}
	result.Token = token
	result.Name = user.Username
	result.Role = user.Role
	result.CompanyId = user.CompanyId

	if user.CompanyId != "" {
		company, err := GetCompany(ctx, user.CompanyId)
		if err != nil {
			return nil, err
		}
		result.CompanyName = company.Name
	}

	tokenLifespan, err := strconv.Atoi(utils.GetEnv("TOKEN_HOUR_LIFESPAN", "24"))
	if err != nil {
		return &result, err
	}

	// add new token to the user's tokens set
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, user.Username, time.Duration(tokenLifespan)*time.Hour); err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("User:"+user.Username, &user, time.Duration(tokenLifespan)*time.Hour); err != nil {
		return nil, err
	}

	return &result, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + fmt.Sprint(token))
	if err != nil {
		return false, nil
	}
	// remove current token from tokens list
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}
