package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arenaludo/ludo-server/internal/ports/persistence"
)

// These tests exercise a live MySQL instance and skip cleanly when one
// isn't reachable, mirroring how the rest of the corpus treats
// database integration tests.

func TestDatabaseConnection(t *testing.T) {
	db, err := NewDB("localhost", "3306", "ludo_user", "LudoPass2024!", "ludo_server")
	if err != nil {
		t.Skip("database not available:", err)
	}
	defer db.Close()
}

func TestLookupTournamentNotFound(t *testing.T) {
	db, err := NewDB("localhost", "3306", "ludo_user", "LudoPass2024!", "ludo_server")
	if err != nil {
		t.Skip("database not available:", err)
	}
	defer db.Close()

	_, err = db.LookupTournament(t.Context(), "NOSUCHCODE")
	require.ErrorIs(t, err, persistence.ErrTournamentNotFound)
}
