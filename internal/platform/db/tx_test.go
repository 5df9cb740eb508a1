package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMarkSerializationTagsConcurrentUpdateAborts(t *testing.T) {
	raw := fmt.Errorf("docnum: next sequence: %w", &pgconn.PgError{
		Code:    "40001",
		Message: "could not serialize access due to concurrent update",
	})

	err := markSerialization(raw)
	require.ErrorIs(t, err, ErrSerialization)

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr, "original chain must stay reachable")
}

func TestMarkSerializationLeavesOtherErrorsUntouched(t *testing.T) {
	unique := fmt.Errorf("docnum: record identifier: %w", &pgconn.PgError{Code: "23505"})
	require.Equal(t, unique, markSerialization(unique))
	require.NotErrorIs(t, markSerialization(unique), ErrSerialization)

	plain := fmt.Errorf("db: commit tx: connection reset")
	require.Equal(t, plain, markSerialization(plain))
}
