//go:build integration

package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"bookline/pkg/client"
)

const (
	DefaultHealthCheckTimeout = 30 * time.Second
	DefaultJWTSecret          = "integration-secret-integration-secret"
)

type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	ServerPort   string
	JWTSecret    string
}

func NewTestEnv() *TestEnv {
	mongoURI := getEnv("TEST_MONGO_URI", DefaultMongoURI)
	dbName := getEnv("TEST_DB_NAME", DefaultDatabaseName)
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	serverURL := getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort))

	return &TestEnv{
		MongoURI:     mongoURI,
		DatabaseName: dbName,
		ServerURL:    serverURL,
		ServerPort:   serverPort,
		JWTSecret:    getEnv("TEST_JWT_SECRET", DefaultJWTSecret),
	}
}

// Setup cleans the bookline collections and waits for the service under test.
func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *client.HttpClient) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	httpClient := client.NewHttpClient(e.ServerURL)
	if err := httpClient.WaitForHealthy(DefaultHealthCheckTimeout); err != nil {
		t.Fatalf("service is not healthy: %v", err)
	}

	return mongo, httpClient
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
