package backup

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jmgilman/simplefs/errors"
)

// setupTestMinIO starts a MinIO container and returns a target on a fresh bucket.
func setupTestMinIO(t *testing.T) (*ObjectTarget, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	minioC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")

	endpoint, err := minioC.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get container endpoint")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err, "failed to create MinIO client")

	bucketName := "volumes"
	err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	require.NoError(t, err, "failed to create test bucket")

	target, err := NewObjectTarget(ObjectConfig{
		Client: client,
		Bucket: bucketName,
		Prefix: "nightly",
	})
	require.NoError(t, err, "failed to create object target")

	cleanup := func() {
		_ = minioC.Terminate(ctx)
	}

	return target, cleanup
}

func TestIntegration_ObjectTarget(t *testing.T) {
	target, cleanup := setupTestMinIO(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("backup and restore round trip", func(t *testing.T) {
		vol := newVolume(t)
		require.NoError(t, vol.Create("report.txt"))
		require.NoError(t, vol.Write("report.txt", []byte("quarterly numbers")))

		svc, err := New([]Target{target})
		require.NoError(t, err)
		require.NoError(t, svc.Backup(ctx, vol.Extent(), "disk.bak"))

		require.NoError(t, vol.Delete("report.txt"))
		require.NoError(t, svc.Restore(ctx, vol.Extent(), "disk.bak"))

		data, err := vol.ReadFile("report.txt")
		require.NoError(t, err)
		assert.Equal(t, "quarterly numbers", string(data))
	})

	t.Run("missing object", func(t *testing.T) {
		_, _, err := target.Get(ctx, "missing.bak")
		assert.True(t, errors.HasCode(err, errors.CodeNotFound))
	})
}
