package model

type User struct {
	Base
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

type CreateUserParams struct {
	Username string `validate:"required,alphanum,min=3,max=50"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}
