// Package evidence provides content-addressed storage for immutable blobs:
// treatment credentials read during adjudication and signed outcome
// credentials persisted after it. The store is advisory for the engine; a
// failed Put or Get never blocks a ledger-final decision.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// CID is a content identifier derived from the blob bytes. Identical bytes
// always yield the same CID, which makes re-put idempotent.
type CID string

// ComputeCID derives the content identifier for a blob.
func ComputeCID(data []byte) CID {
	sum := sha256.Sum256(data)
	return CID("sha256:" + hex.EncodeToString(sum[:]))
}

// Store is the content-addressed blob contract.
//
// Error contract: Get returns sentinel.ErrNotFound (optionally wrapped) for an
// unknown CID and sentinel.ErrUnavailable when the backend is unreachable.
type Store interface {
	Put(ctx context.Context, data []byte) (CID, error)
	Get(ctx context.Context, cid CID) ([]byte, error)
}
