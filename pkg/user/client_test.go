package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/internal/sandboxtest"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/user"
)

func TestSignupLoginLifecycle(t *testing.T) {
	env := sandboxtest.New(t)
	c := user.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	res, err := c.Signup(ctx, "alice", "secret", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Address)
	assert.NotEmpty(t, res.Mnemonic)

	exists, err := c.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	loggedIn, err := c.IsLoggedIn(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, loggedIn)

	info, err := c.Info(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, res.Address, info.Address)

	exp, err := c.Export(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, res.Address, exp.Address)

	require.NoError(t, c.Logout(ctx, "alice"))
	loggedIn, err = c.IsLoggedIn(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, loggedIn)

	_, err = c.Info(ctx, "alice")
	assert.ErrorIs(t, err, dfs.ErrNotLoggedIn)

	require.NoError(t, c.Login(ctx, "alice", "secret"))
	_, err = c.Info(ctx, "alice")
	assert.NoError(t, err)
}

func TestSignupWithMnemonic(t *testing.T) {
	env := sandboxtest.New(t)
	c := user.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	mnemonic, err := user.GenerateMnemonic()
	require.NoError(t, err)

	res, err := c.Signup(ctx, "alice", "secret", mnemonic)
	require.NoError(t, err)
	assert.Empty(t, res.Mnemonic)

	_, err = c.Signup(ctx, "bob", "secret", "not a real phrase")
	assert.ErrorIs(t, err, dfs.ErrInvalidArgument)
}

func TestKnownErrors(t *testing.T) {
	env := sandboxtest.New(t)
	c := user.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	_, err := c.Signup(ctx, "alice", "secret", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		call   func() error
		target error
	}{
		{
			name: "signup taken",
			call: func() error {
				_, err := c.Signup(ctx, "alice", "other", "")
				return err
			},
			target: user.ErrUsernameAlreadyExists,
		},
		{
			name:   "unknown user",
			call:   func() error { return c.Login(ctx, "mallory", "secret") },
			target: user.ErrInvalidUsername,
		},
		{
			name:   "wrong password",
			call:   func() error { return c.Login(ctx, "alice", "wrong") },
			target: user.ErrInvalidPassword,
		},
		{
			name:   "empty username",
			call:   func() error { return c.Login(ctx, " ", "secret") },
			target: dfs.ErrInvalidArgument,
		},
		{
			name:   "no session",
			call:   func() error { return c.Logout(ctx, "bob") },
			target: dfs.ErrNotLoggedIn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestDeleteAndImport(t *testing.T) {
	env := sandboxtest.New(t)
	c := user.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	mnemonic, err := user.GenerateMnemonic()
	require.NoError(t, err)
	res, err := c.Signup(ctx, "alice", "secret", mnemonic)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "alice", "secret"))
	exists, err := c.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, env.HTTP.Session().Users())

	addr, err := c.ImportWithMnemonic(ctx, "alice2", "secret", mnemonic)
	require.NoError(t, err)
	assert.Equal(t, res.Address, addr)

	require.NoError(t, c.Delete(ctx, "alice2", "secret"))
	addr, err = c.ImportWithAddress(ctx, "alice3", "secret", res.Address)
	require.NoError(t, err)
	assert.Equal(t, res.Address, addr)

	_, err = c.ImportWithAddress(ctx, "eve", "secret", "0xdeadbeef")
	assert.ErrorIs(t, err, dfs.ErrRequest)
}

func TestLogoutAll(t *testing.T) {
	env := sandboxtest.New(t)
	c := user.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		_, err := c.Signup(ctx, name, "secret", "")
		require.NoError(t, err)
	}
	require.Equal(t, []string{"alice", "bob"}, env.HTTP.Session().Users())

	require.NoError(t, c.LogoutAll(ctx))
	assert.Empty(t, env.HTTP.Session().Users())
}

func TestEmptyUsernameRejected(t *testing.T) {
	url, hits := sandboxtest.Counter(t)
	c, err := user.New(url)
	require.NoError(t, err)
	ctx := context.Background()

	calls := map[string]func() error{
		"logout":     func() error { return c.Logout(ctx, "") },
		"export":     func() error { _, err := c.Export(ctx, ""); return err },
		"stat":       func() error { _, err := c.Info(ctx, ""); return err },
		"present":    func() error { _, err := c.Exists(ctx, ""); return err },
		"isloggedin": func() error { _, err := c.IsLoggedIn(ctx, ""); return err },
	}
	for op, call := range calls {
		assert.ErrorIs(t, call(), dfs.ErrInvalidArgument, op)
	}
	assert.Zero(t, hits.Load())
}
