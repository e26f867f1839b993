package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"personal-diary/internal/config"
	"personal-diary/internal/storage"
)

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) PutObject(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[opts.Key] = raw
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memStorage) ListObjects(_ context.Context, _ string, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, raw := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(raw))})
		}
	}
	return out, nil
}

func (m *memStorage) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	objects, _ := m.ListObjects(ctx, bucket, prefix)
	for _, obj := range objects {
		delete(m.objects, obj.Key)
	}
	return nil
}

func (m *memStorage) GetObjectURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://example.test/" + bucket + "/" + key, nil
}

func newCLI(t *testing.T) (*cli, *bytes.Buffer, *memStorage) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	out := &bytes.Buffer{}
	store := &memStorage{objects: map[string][]byte{}}

	var cfg config.Config
	cfg.Database.Path = filepath.Join(t.TempDir(), "diary.db")
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Storage.Bucket = "exports"
	cfg.Storage.KeyPrefix = "diary"

	app := &cli{
		cfg:        cfg,
		logger:     logger,
		out:        out,
		newStorage: func(context.Context) (storage.Service, error) { return store, nil },
	}
	return app, out, store
}

func TestRun_Usage(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	out := &bytes.Buffer{}

	err := run(context.Background(), config.Config{}, logger, nil, out)
	assert.EqualError(t, err, "missing command")
	assert.Contains(t, out.String(), "usage: diaryctl")

	out.Reset()
	err = run(context.Background(), config.Config{}, logger, []string{"frobnicate"}, out)
	assert.EqualError(t, err, `unknown command "frobnicate"`)

	out.Reset()
	require.NoError(t, run(context.Background(), config.Config{}, logger, []string{"help"}, out))
	assert.Contains(t, out.String(), "purge-exports")
}

func TestInitAndCheck(t *testing.T) {
	ctx := context.Background()
	app, out, _ := newCLI(t)

	require.NoError(t, app.initDB(ctx, nil))
	assert.Contains(t, out.String(), `created user "admin"`)

	out.Reset()
	require.NoError(t, app.initDB(ctx, nil))
	assert.Contains(t, out.String(), `user "admin" already exists`)

	out.Reset()
	require.NoError(t, app.check(ctx, nil))
	assert.Contains(t, out.String(), "connected to "+app.cfg.Database.Path)
	assert.Regexp(t, `users\s+1`, out.String())
	assert.Regexp(t, `diary_entries\s+0`, out.String())
}

func TestCheck_DBFlag(t *testing.T) {
	ctx := context.Background()
	app, out, _ := newCLI(t)
	other := filepath.Join(t.TempDir(), "other.db")

	require.NoError(t, app.initDB(ctx, []string{"--db", other}))
	out.Reset()
	require.NoError(t, app.check(ctx, nil))
	assert.Contains(t, out.String(), other)
}

func TestExportListPurge(t *testing.T) {
	ctx := context.Background()
	app, out, store := newCLI(t)
	require.NoError(t, app.initDB(ctx, nil))

	assert.EqualError(t, app.export(ctx, nil), "--user is required")

	out.Reset()
	require.NoError(t, app.export(ctx, []string{"-u", "admin"}))
	assert.Contains(t, out.String(), "exported 0 entries to s3://exports/diary/admin/")
	require.Len(t, store.objects, 1)

	out.Reset()
	require.NoError(t, app.listExports(ctx, []string{"--user", "admin", "--links", "10m"}))
	assert.Contains(t, out.String(), "diary/admin/")
	assert.Contains(t, out.String(), "https://example.test/exports/diary/admin/")

	err := app.purgeExports(ctx, []string{"--user", "admin"})
	assert.EqualError(t, err, "refusing to delete exports of admin without --yes")
	assert.Len(t, store.objects, 1)

	out.Reset()
	require.NoError(t, app.purgeExports(ctx, []string{"--user", "admin", "--yes"}))
	assert.Empty(t, store.objects)

	out.Reset()
	require.NoError(t, app.listExports(ctx, []string{"--user", "admin"}))
	assert.Contains(t, out.String(), "no exports for admin")
}

func TestExport_UnknownUser(t *testing.T) {
	ctx := context.Background()
	app, _, store := newCLI(t)

	err := app.export(ctx, []string{"--user", "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
	assert.Empty(t, store.objects)
}
