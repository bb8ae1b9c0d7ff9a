package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBoltStore returns a new bolt store in a temporary path.
func newTestBoltStore(t *testing.T) BookStorage {
	t.Helper()
	testConfig := &Config{
		BoltDB: BoltDBConfig{
			FilePath:   filepath.Join(t.TempDir(), "tmp.bolt.db"),
			Timeout:    5 * time.Second,
			BucketName: "test.books",
		},
	}

	client, err := GetBoltDBClient(testConfig)
	require.NoError(t, err, "failed in creating a test bolt store")
	bs := NewBoltBookStorage(zap.NewNop(), &testConfig.BoltDB, client)
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func TestBoltStore(t *testing.T) {
	runBookStorageTests(t, newTestBoltStore(t))
}

func TestGetBoltDBClient_InvalidPath(t *testing.T) {
	testConfig := &Config{
		BoltDB: BoltDBConfig{
			FilePath:   filepath.Join(t.TempDir(), "missing", "dir", "tmp.bolt.db"),
			Timeout:    time.Second,
			BucketName: "test.books",
		},
	}
	_, err := GetBoltDBClient(testConfig)
	require.Error(t, err)
}
