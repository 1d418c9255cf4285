// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pull_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"code.hybscloud.com/pull"
)

// TestAcquireRealFileBackedResource exercises the scope tree against a real
// cancelable resource — a bbolt database file — rather than an in-memory
// stand-in, to demonstrate Acquire/Bracket's release-on-close guarantee
// against something with actual OS-level state.
func TestAcquireRealFileBackedResource(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scope-resource.db")

	root := pull.NewRootScope()
	var opened *bbolt.DB

	p := pull.BracketCase[int, *bbolt.DB, int](
		func(context.Context) (*bbolt.DB, error) {
			db, err := bbolt.Open(dbPath, 0o600, nil)
			opened = db
			return db, err
		},
		func(db *bbolt.DB) pull.Pull[int, int] {
			err := db.Update(func(tx *bbolt.Tx) error {
				b, err := tx.CreateBucketIfNotExists([]byte("chunks"))
				if err != nil {
					return err
				}
				return b.Put([]byte("count"), []byte("1"))
			})
			if err != nil {
				return pull.RaiseError[int, int](err)
			}
			return pull.Pure[int](1)
		},
		func(db *bbolt.DB, _ pull.ExitCase) func(context.Context) error {
			return func(context.Context) error { return db.Close() }
		},
	)

	_, err := pull.Compile(context.Background(), pull.Void(p), root, pull.Unit{}, func(u pull.Unit, _ pull.Chunk[int]) (pull.Unit, error) {
		return u, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened == nil {
		t.Fatal("expected the database to have been opened")
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Fatalf("expected the db file to exist after release: %v", statErr)
	}
}
