package pod_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdatasociety/fairos_sdk_go/internal/sandboxtest"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/pod"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/user"
)

func TestPodLifecycle(t *testing.T) {
	env := sandboxtest.New(t)
	env.Signup(t, "alice", "secret")
	c := pod.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	list, err := c.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{}, list.Pods)
	assert.Equal(t, []string{}, list.SharedPods)

	require.NoError(t, c.Create(ctx, "alice", "photos", "secret"))
	require.NoError(t, c.Create(ctx, "alice", "notes", "secret"))
	err = c.Create(ctx, "alice", "photos", "secret")
	assert.ErrorIs(t, err, dfs.ErrRequest)

	list, err = c.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "photos"}, list.Pods)

	exists, err := c.Exists(ctx, "alice", "photos")
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := c.Info(ctx, "alice", "photos")
	require.NoError(t, err)
	assert.Equal(t, "photos", info.Name)
	assert.NotEmpty(t, info.Address)

	require.NoError(t, c.Sync(ctx, "alice", "photos"))
	require.NoError(t, c.Close(ctx, "alice", "photos"))
	assert.Error(t, c.Sync(ctx, "alice", "photos"))

	err = c.Open(ctx, "alice", "photos", "wrong")
	var dfsErr *dfs.Error
	require.ErrorAs(t, err, &dfsErr)
	assert.Equal(t, dfs.GroupPod, dfsErr.Group)
	assert.Equal(t, "open", dfsErr.Op)
	assert.Equal(t, "pod open: invalid password", dfsErr.Message)
	require.NoError(t, c.Open(ctx, "alice", "photos", "secret"))

	require.NoError(t, c.Delete(ctx, "alice", "notes", "secret"))
	exists, err = c.Exists(ctx, "alice", "notes")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestShareAndReceive(t *testing.T) {
	env := sandboxtest.New(t)
	env.Pod(t, "alice", "secret", "photos")
	env.Signup(t, "bob", "hunter2")
	c := pod.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	ref, err := c.Share(ctx, "alice", "photos", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	shared, err := c.SharedInfo(ctx, "bob", ref)
	require.NoError(t, err)
	assert.Equal(t, "photos", shared.Name)
	assert.Equal(t, "alice", shared.Username)
	assert.False(t, shared.SharedTime.IsZero())

	alice, err := user.NewWithHTTPClient(env.HTTP).Info(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Address, shared.UserAddress)

	require.NoError(t, c.Receive(ctx, "bob", ref))
	list, err := c.List(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{}, list.Pods)
	assert.Equal(t, []string{"photos"}, list.SharedPods)

	err = c.Receive(ctx, "bob", "unknown")
	assert.ErrorIs(t, err, dfs.ErrRequest)
}

func TestArgumentsCheckedLocally(t *testing.T) {
	env := sandboxtest.New(t)
	c := pod.NewWithHTTPClient(env.HTTP)
	ctx := context.Background()

	assert.ErrorIs(t, c.Create(ctx, "alice", "", "secret"), dfs.ErrInvalidArgument)
	assert.ErrorIs(t, c.Open(ctx, "alice", "photos", ""), dfs.ErrInvalidArgument)
	_, err := c.Share(ctx, "alice", "", "")
	assert.ErrorIs(t, err, dfs.ErrInvalidArgument)
	assert.ErrorIs(t, c.Create(ctx, "alice", "photos", "secret"), dfs.ErrNotLoggedIn)
}

func TestEmptyUsernameRejected(t *testing.T) {
	url, hits := sandboxtest.Counter(t)
	c, err := pod.New(url)
	require.NoError(t, err)
	ctx := context.Background()

	calls := map[string]func() error{
		"new":         func() error { return c.Create(ctx, "", "photos", "pw") },
		"open":        func() error { return c.Open(ctx, "", "photos", "pw") },
		"sync":        func() error { return c.Sync(ctx, "", "photos") },
		"close":       func() error { return c.Close(ctx, "", "photos") },
		"share":       func() error { _, err := c.Share(ctx, "", "photos", "pw"); return err },
		"delete":      func() error { return c.Delete(ctx, "", "photos", "pw") },
		"present":     func() error { _, err := c.Exists(ctx, "", "photos"); return err },
		"ls":          func() error { _, err := c.List(ctx, ""); return err },
		"stat":        func() error { _, err := c.Info(ctx, "", "photos"); return err },
		"receive":     func() error { return c.Receive(ctx, "", "ref") },
		"receiveinfo": func() error { _, err := c.SharedInfo(ctx, "", "ref"); return err },
	}
	for op, call := range calls {
		assert.ErrorIs(t, call(), dfs.ErrInvalidArgument, op)
	}
	assert.Zero(t, hits.Load())
}
