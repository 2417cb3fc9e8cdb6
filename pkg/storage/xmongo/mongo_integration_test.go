//go:build integration

package xmongo_test

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/omeyang/xseckill/pkg/storage/xmongo"
)

// MongoURI 返回 XSECKILL_MONGO_URI 或启动 mongo 容器。
func MongoURI(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv("XSECKILL_MONGO_URI"); uri != "" {
		return uri
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not found in PATH, skipping integration test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("mongo container not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "mongodb")
	require.NoError(t, err)
	return endpoint
}

func TestIntegration_HealthAndDo(t *testing.T) {
	m, err := xmongo.Connect(xmongo.Config{URI: MongoURI(t)})
	require.NoError(t, err)
	defer func() { _ = m.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	require.NoError(t, m.Health(ctx))

	coll := m.Database("xmongo_it").Collection("docs")
	err = m.Do(ctx, "docs", "insert", func(ctx context.Context) error {
		_, err := coll.InsertOne(ctx, bson.D{{Key: "k", Value: "v"}})
		return err
	})
	require.NoError(t, err)

	var n int64
	err = m.Do(ctx, "docs", "count", func(ctx context.Context) error {
		var err error
		n, err = coll.CountDocuments(ctx, bson.D{{Key: "k", Value: "v"}})
		return err
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}
