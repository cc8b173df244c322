package p4

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown file is added", func(t *testing.T) {
		server := NewMockServer()
		res, err := NewFileReconciler(server, server).AddOrEdit(ctx, NewFileSpec("//depot/new.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.True(t, res.Added)
		assert.Equal(t, []string{OpAdd}, server.Ops())
		assert.Equal(t, "//depot/new.txt#1 - opened for add", res.Message)
	})

	t.Run("known file is edited", func(t *testing.T) {
		server := NewMockServer().AddDepotFile("//depot/old.txt", 2)
		res, err := NewFileReconciler(server, server).AddOrEdit(ctx, NewFileSpec("//depot/old.txt"), NumberedChangelist(3))
		require.NoError(t, err)
		assert.False(t, res.Added)
		assert.Equal(t, NumberedChangelist(3), res.Changelist)
		assert.Equal(t, ActionEdit, server.File("//depot/old.txt").OpenAction)
	})

	t.Run("deleted at head is added", func(t *testing.T) {
		server := NewMockServer().AddDeletedFile("//depot/gone.txt", 4)
		res, err := NewFileReconciler(server, server).AddOrEdit(ctx, NewFileSpec("//depot/gone.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.True(t, res.Added)
	})

	t.Run("open for delete is reverted then edited", func(t *testing.T) {
		server := NewMockServer().AddDepotFile("//depot/d.txt", 2).SetOpen("//depot/d.txt", ActionDelete, 0)
		files := NewFileReconciler(server, server)
		reverts := 0
		files.OnRevert(func([]FileSpec, string) { reverts++ })

		res, err := files.AddOrEdit(ctx, NewFileSpec("//depot/d.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.False(t, res.Added)
		assert.Equal(t, 1, reverts)
		assert.Equal(t, []string{OpRevert, OpEdit}, server.Ops())
	})

	t.Run("already open is left alone", func(t *testing.T) {
		server := NewMockServer().AddDepotFile("//depot/e.txt", 2).SetOpen("//depot/e.txt", ActionEdit, 9)
		res, err := NewFileReconciler(server, server).AddOrEdit(ctx, NewFileSpec("//depot/e.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.True(t, res.AlreadyOpen)
		assert.Equal(t, NumberedChangelist(9), res.Changelist)
		assert.Empty(t, server.Ops())
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("open for add is reverted", func(t *testing.T) {
		server := NewMockServer().SetOpen("//depot/a.txt", ActionAdd, 0)
		res, err := NewFileReconciler(server, server).Delete(ctx, NewFileSpec("//depot/a.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.True(t, res.Reverted)
		assert.Equal(t, []string{OpRevert}, server.Ops())
		assert.Nil(t, server.File("//depot/a.txt"))
	})

	t.Run("open for edit is reverted then deleted", func(t *testing.T) {
		server := NewMockServer().AddDepotFile("//depot/b.txt", 3).SetOpen("//depot/b.txt", ActionEdit, 0)
		res, err := NewFileReconciler(server, server).Delete(ctx, NewFileSpec("//depot/b.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.False(t, res.Reverted)
		assert.Equal(t, []string{OpRevert, OpDelete}, server.Ops())
		assert.Equal(t, "//depot/b.txt#3 - opened for delete", res.Message)
	})

	t.Run("already open for delete", func(t *testing.T) {
		server := NewMockServer().AddDepotFile("//depot/c.txt", 3).SetOpen("//depot/c.txt", ActionDelete, 0)
		res, err := NewFileReconciler(server, server).Delete(ctx, NewFileSpec("//depot/c.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.Len(t, res.Files, 1)
		assert.Empty(t, server.Ops())
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		server := NewMockServer()
		res, err := NewFileReconciler(server, server).Delete(ctx, NewFileSpec("//depot/none.txt"), DefaultChangelist())
		require.NoError(t, err)
		assert.Equal(t, "//depot/none.txt - no such file(s).", res.Message)
	})
}

func TestFileReconcilerLogsChangelistCreation(t *testing.T) {
	var global, own bytes.Buffer
	prev := log.Default()
	log.SetDefault(log.NewWithOptions(&global, log.Options{Level: log.DebugLevel}))
	defer log.SetDefault(prev)

	server := NewMockServer()
	files := NewFileReconciler(server, server)
	files.SetLogger(log.NewWithOptions(&own, log.Options{Level: log.DebugLevel}))

	res, err := files.AddOrEdit(context.Background(), NewFileSpec("//depot/new.txt"), PendingCreation())
	require.NoError(t, err)
	assert.Equal(t, ChangelistNumbered, res.Changelist.State)
	assert.Contains(t, own.String(), "Created changelist")
	assert.NotContains(t, global.String(), "Created changelist")
}
