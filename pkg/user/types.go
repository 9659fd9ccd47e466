package user

import "errors"

var (
	// ErrUsernameAlreadyExists is returned by Signup for a taken username.
	ErrUsernameAlreadyExists = errors.New("user: username already exists")
	// ErrInvalidUsername is returned by Login for an unknown username.
	ErrInvalidUsername = errors.New("user: invalid username")
	// ErrInvalidPassword is returned by Login for a wrong password.
	ErrInvalidPassword = errors.New("user: invalid password")
)

// Server messages recognised by the error mapping.
const (
	MsgUsernameAlreadyPresent = "user signup: user name already present"
	MsgInvalidUsername        = "user login: invalid user name"
	MsgInvalidPassword        = "user login: invalid password"
)

// SignupResult is returned by Signup. Mnemonic is only set when the server
// generated one because none was supplied.
type SignupResult struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

// Export describes an exported account.
type Export struct {
	Username string `json:"user_name"`
	Address  string `json:"address"`
}

// Info describes the logged-in account.
type Info struct {
	Username string `json:"user_name"`
	Address  string `json:"address"`
}

type signupRequest struct {
	Username string `json:"user_name"`
	Password string `json:"password"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

type loginRequest struct {
	Username string `json:"user_name"`
	Password string `json:"password"`
}

type importRequest struct {
	Username string `json:"user_name"`
	Password string `json:"password"`
	Address  string `json:"address,omitempty"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

type importResponse struct {
	Address string `json:"address"`
}

type deleteRequest struct {
	Password string `json:"password"`
}
