package index

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimchain/contracts/credential"
	"claimchain/internal/sentinel"
)

func TestPostgresSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	issuedAt := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("INSERT INTO issued_credentials").
		WithArgs("cred-1", uint64(7), uint64(3), "Approved", "eyJ.jwt", "sha256:abc", issuedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgres(db)
	err = store.Save(context.Background(), &Record{
		CredentialID: "cred-1",
		ClaimID:      7,
		PolicyID:     3,
		Status:       credential.StatusApproved,
		JWT:          "eyJ.jwt",
		CID:          "sha256:abc",
		IssuedAt:     issuedAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	issuedAt := time.Unix(1700000000, 0).UTC()
	rows := sqlmock.NewRows([]string{"credential_id", "claim_id", "policy_id", "status", "jwt", "cid", "issued_at"}).
		AddRow("cred-1", 7, 3, "Rejected", "eyJ.jwt", "", issuedAt)
	mock.ExpectQuery("SELECT credential_id, claim_id, policy_id, status, jwt, cid, issued_at").
		WithArgs(uint64(7)).
		WillReturnRows(rows)

	store := NewPostgres(db)
	rec, err := store.FindByClaim(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, credential.StatusRejected, rec.Status)
	assert.Equal(t, uint64(3), rec.PolicyID)
	assert.Empty(t, rec.CID, "persistence failures leave an empty CID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByClaimNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT credential_id, claim_id, policy_id, status, jwt, cid, issued_at").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"credential_id", "claim_id", "policy_id", "status", "jwt", "cid", "issued_at"}))

	store := NewPostgres(db)
	_, err = store.FindByClaim(context.Background(), 99)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
