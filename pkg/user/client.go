package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-multierror"
	"github.com/tyler-smith/go-bip39"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
	"github.com/fairdatasociety/fairos_sdk_go/internal/httpx"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

var knownErrors = map[string]error{
	MsgUsernameAlreadyPresent: ErrUsernameAlreadyExists,
	MsgInvalidUsername:        ErrInvalidUsername,
	MsgInvalidPassword:        ErrInvalidPassword,
}

// Client provides access to the account endpoints.
type Client struct {
	http *httpx.Client
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client and its session store.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{http: httpClient}
}

// GenerateMnemonic returns a fresh 12 word BIP-39 phrase.
func GenerateMnemonic() (string, error) {
	entropy := make([]byte, 16)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("user: read entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// Signup creates an account and logs it in. An empty mnemonic asks the
// server to generate one, which is then returned in the result.
func (c *Client) Signup(ctx context.Context, username, password, mnemonic string) (*SignupResult, error) {
	const op = "signup"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username), dfs.Required("password", password)); err != nil {
		return nil, err
	}
	if mnemonic != "" && !bip39.IsMnemonicValid(mnemonic) {
		return nil, &dfs.Error{Group: dfs.GroupUser, Op: op, Message: "mnemonic is not a valid BIP-39 phrase", Err: dfs.ErrInvalidArgument}
	}

	var res SignupResult
	err := c.http.DoSession(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "user/signup",
		JSON:   signupRequest{Username: username, Password: password, Mnemonic: mnemonic},
	}, username, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
	}
	return &res, nil
}

// Login opens a session for username.
func (c *Client) Login(ctx context.Context, username, password string) error {
	const op = "login"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username), dfs.Required("password", password)); err != nil {
		return err
	}
	err := c.http.DoSession(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "user/login",
		JSON:   loginRequest{Username: username, Password: password},
	}, username, nil)
	return dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
}

// ImportWithAddress restores an account from its address and logs it in.
func (c *Client) ImportWithAddress(ctx context.Context, username, password, address string) (string, error) {
	const op = "import"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username), dfs.Required("password", password), dfs.Required("address", address)); err != nil {
		return "", err
	}
	return c.importUser(ctx, op, importRequest{Username: username, Password: password, Address: address})
}

// ImportWithMnemonic restores an account from its mnemonic and logs it in.
func (c *Client) ImportWithMnemonic(ctx context.Context, username, password, mnemonic string) (string, error) {
	const op = "import"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username), dfs.Required("password", password), dfs.Required("mnemonic", mnemonic)); err != nil {
		return "", err
	}
	return c.importUser(ctx, op, importRequest{Username: username, Password: password, Mnemonic: mnemonic})
}

func (c *Client) importUser(ctx context.Context, op string, body importRequest) (string, error) {
	var res importResponse
	err := c.http.DoSession(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "user/import",
		JSON:   body,
	}, body.Username, &res)
	if err != nil {
		return "", dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
	}
	return res.Address, nil
}

// Delete removes the account of a logged-in user and forgets its session.
func (c *Client) Delete(ctx context.Context, username, password string) error {
	const op = "delete"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username), dfs.Required("password", password)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "user/delete",
		User:   username,
		JSON:   deleteRequest{Password: password},
	}, nil)
	if err != nil {
		return dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
	}
	c.http.Session().Delete(username)
	return nil
}

// Exists reports whether username is registered. No session is needed.
func (c *Client) Exists(ctx context.Context, username string) (bool, error) {
	const op = "present"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username)); err != nil {
		return false, err
	}
	var res dfsapi.Present
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "user/present",
		Query:  url.Values{"user_name": {username}},
	}, &res)
	if err != nil {
		return false, dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
	}
	return res.Present, nil
}

// IsLoggedIn asks the server whether username has an active session.
func (c *Client) IsLoggedIn(ctx context.Context, username string) (bool, error) {
	const op = "isloggedin"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username)); err != nil {
		return false, err
	}
	var res dfsapi.Present
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "user/isloggedin",
		Query:  url.Values{"user_name": {username}},
	}, &res)
	if err != nil {
		return false, dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
	}
	return res.LoggedIn, nil
}

// Logout closes the session of username and forgets its cookie.
func (c *Client) Logout(ctx context.Context, username string) error {
	const op = "logout"
	if err := dfs.Check(dfs.GroupUser, op, dfs.Required("user_name", username)); err != nil {
		return err
	}
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "user/logout",
		User:   username,
	}, nil)
	if err != nil {
		return dfs.Wrap(dfs.GroupUser, op, err, knownErrors)
	}
	c.http.Session().Delete(username)
	return nil
}

// LogoutAll logs out every user holding a session. All users are attempted;
// failures are aggregated.
func (c *Client) LogoutAll(ctx context.Context) error {
	var result *multierror.Error
	for _, u := range c.http.Session().Users() {
		if err := c.Logout(ctx, u); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Export returns the username and address of a logged-in account.
func (c *Client) Export(ctx context.Context, username string) (*Export, error) {
	if err := dfs.Check(dfs.GroupUser, "export", dfs.Required("user_name", username)); err != nil {
		return nil, err
	}
	var res Export
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "user/export",
		User:   username,
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupUser, "export", err, knownErrors)
	}
	return &res, nil
}

// Info returns the account details of a logged-in user.
func (c *Client) Info(ctx context.Context, username string) (*Info, error) {
	if err := dfs.Check(dfs.GroupUser, "stat", dfs.Required("user_name", username)); err != nil {
		return nil, err
	}
	var res Info
	err := c.http.DoJSON(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "user/stat",
		User:   username,
	}, &res)
	if err != nil {
		return nil, dfs.Wrap(dfs.GroupUser, "stat", err, knownErrors)
	}
	return &res, nil
}
