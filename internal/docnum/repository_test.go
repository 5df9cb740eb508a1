package docnum

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestSQLStateClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	require.True(t, isUniqueViolation(dup))
	require.False(t, isSerializationFailure(dup))

	abort := fmt.Errorf("update: %w", &pgconn.PgError{
		Code:    "40001",
		Message: "could not serialize access due to concurrent update",
	})
	require.True(t, isSerializationFailure(abort))
	require.False(t, isUniqueViolation(abort))

	require.False(t, isUniqueViolation(fmt.Errorf("no pg error here")))
	require.False(t, isSerializationFailure(nil))
}
