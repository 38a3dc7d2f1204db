package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"ragsearch/internal/domain"
)

func seed(t *testing.T, bucket string, pairs map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		for k, v := range pairs {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return path
}

func TestBoltPrefixScan(t *testing.T) {
	path := seed(t, "docs", map[string]string{
		"user:2":  "Jane",
		"user:1":  "John",
		"order:1": "book",
	})
	r := NewBoltRetriever(Options{Path: path, Bucket: "docs"})
	defer r.Close()

	records, err := r.Query(context.Background(), domain.Request{Text: "user:"})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"user:1", "John"}, {"user:2", "Jane"}}, domain.Rows(records))
	assert.Equal(t, []string{"key", "value"}, records[0].Columns)
}

func TestBoltEmptyPrefixScansBucket(t *testing.T) {
	path := seed(t, "docs", map[string]string{"b": "2", "a": "1"})
	r := NewBoltRetriever(Options{Path: path, Bucket: "docs"})
	defer r.Close()

	records, err := r.Query(context.Background(), domain.Request{})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", "1"}, {"b", "2"}}, domain.Rows(records))
}

func TestBoltMissingBucket(t *testing.T) {
	path := seed(t, "docs", nil)
	r := NewBoltRetriever(Options{Path: path, Bucket: "other"})
	defer r.Close()

	_, err := r.Query(context.Background(), domain.Request{})
	assert.ErrorIs(t, err, domain.ErrResource)
	assert.Contains(t, err.Error(), "bucket not found")
}

func TestBoltLifecycle(t *testing.T) {
	path := seed(t, "docs", map[string]string{"k": "v"})
	opens := 0
	counting := func(path string, mode os.FileMode, options *bbolt.Options) (*bbolt.DB, error) {
		opens++
		return bbolt.Open(path, mode, options)
	}
	r := NewBoltRetriever(Options{Path: path, Bucket: "docs"}, WithOpener(counting))
	ctx := context.Background()

	assert.NoError(t, r.Close())

	require.NoError(t, r.Connect(ctx))
	require.NoError(t, r.Connect(ctx))
	assert.Equal(t, 1, opens)

	require.NoError(t, r.Close())
	_, err := r.Query(ctx, domain.Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, opens)
	require.NoError(t, r.Close())
}

func TestBoltOpensReadOnly(t *testing.T) {
	var got *bbolt.Options
	spy := func(path string, mode os.FileMode, options *bbolt.Options) (*bbolt.DB, error) {
		got = options
		return bbolt.Open(path, mode, options)
	}
	path := seed(t, "docs", map[string]string{"k": "v"})
	r := NewBoltRetriever(Options{Path: path, Bucket: "docs"}, WithOpener(spy))
	defer r.Close()

	require.NoError(t, r.Connect(context.Background()))
	require.NotNil(t, got)
	assert.True(t, got.ReadOnly)
}

func TestBoltMissingFileIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.db")
	r := NewBoltRetriever(Options{Path: path, Bucket: "docs"})

	_, err := r.Query(context.Background(), domain.Request{})
	assert.ErrorIs(t, err, domain.ErrResource)
	assert.NoFileExists(t, path)
}

func TestBoltLockedFileIsResourceError(t *testing.T) {
	path := seed(t, "docs", nil)
	holder, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer holder.Close()

	r := NewBoltRetriever(Options{Path: path, Bucket: "docs"}, WithOpenTimeout(50*time.Millisecond))
	err = r.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrResource)
}
