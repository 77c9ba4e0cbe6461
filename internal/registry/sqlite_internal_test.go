package registry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	ctx := t.Context()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "connections.db"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	_, err = store.FindOrCreate(ctx, "MF1:1234", "037")
	require.NoError(t, err)

	// a raw insert stands in for a second process winning the race on
	// (host, port, code_page)
	_, err = store.db.ExecContext(ctx,
		`INSERT INTO connections (id, description, host, port, protocol, code_page, timeout)
		 VALUES ('other-id','','MF1','1234','','037','')`)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))

	require.False(t, isUniqueViolation(errors.New("executing sql insert failed")))
	require.False(t, isUniqueViolation(nil))
}
