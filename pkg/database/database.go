// Package database is the MySQL-backed implementation of the
// Persistence port: tournament lookup, append-only chat/turn-log
// history, and idempotent prize-pool credit (§4.6, §6 persisted state
// layout).
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/arenaludo/ludo-server/internal/ports/persistence"
	"github.com/arenaludo/ludo-server/internal/shared/models"
)

type DB struct {
	conn *sql.DB
}

// NewDB opens a pooled MySQL connection and verifies it with a ping.
func NewDB(host, port, user, password, dbname string) (*DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		user, password, host, port, dbname)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the pooled connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

var _ persistence.Store = (*DB)(nil)

// LookupTournament resolves a room code to its tournament row.
func (db *DB) LookupTournament(ctx context.Context, roomCode string) (persistence.Tournament, error) {
	query := `SELECT id, game_code, max_players, entry_fee, status
	          FROM tournaments WHERE game_code = ?`

	var t persistence.Tournament
	err := db.conn.QueryRowContext(ctx, query, roomCode).Scan(
		&t.ID, &t.RoomCode, &t.MaxPlayers, &t.EntryFee, &t.Status,
	)
	if err == sql.ErrNoRows {
		return persistence.Tournament{}, persistence.ErrTournamentNotFound
	}
	if err != nil {
		return persistence.Tournament{}, fmt.Errorf("lookup tournament: %w", err)
	}
	return t, nil
}

// AppendChat appends one chat line to the tournament's append-only log.
func (db *DB) AppendChat(ctx context.Context, tournamentID string, entry models.ChatEntry) error {
	query := `INSERT INTO chat_messages (tournament_id, player_id, player_name, text, sent_at)
	          VALUES (?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query, tournamentID, entry.PlayerID, entry.PlayerName, entry.Text, entry.SentAt)
	if err != nil {
		return fmt.Errorf("append chat: %w", err)
	}
	return nil
}

// AppendTurnLog appends one structured turn event, storing the
// variable-shaped capture list as JSON.
func (db *DB) AppendTurnLog(ctx context.Context, tournamentID string, entry models.TurnLogEntry) error {
	captured, err := json.Marshal(entry.CapturedPieceIDs)
	if err != nil {
		return fmt.Errorf("append turn log: marshal captures: %w", err)
	}

	query := `INSERT INTO game_turn_history
	          (tournament_id, seq, player_id, kind, dice_value, piece_id,
	           from_position, to_position, captured_piece_ids, occurred_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.ExecContext(ctx, query, tournamentID, entry.Seq, entry.PlayerID, entry.Kind,
		entry.DiceValue, entry.PieceID, entry.FromPosition, entry.ToPosition, captured, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("append turn log: %w", err)
	}
	return nil
}

// CreditWinner pays amount into the winner's wallet balance, recording
// idempotencyKey in a unique-keyed transactions table so a retried
// credit after a crash never double-pays (§7).
func (db *DB) CreditWinner(ctx context.Context, tournamentID, userID string, amount int64, idempotencyKey string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("credit winner: begin: %w", err)
	}
	defer tx.Rollback()

	insertTxn := `INSERT IGNORE INTO transactions (idempotency_key, user_id, tournament_id, amount, kind)
	              VALUES (?, ?, ?, ?, 'tournament_payout')`
	result, err := tx.ExecContext(ctx, insertTxn, idempotencyKey, userID, tournamentID, amount)
	if err != nil {
		return fmt.Errorf("credit winner: insert transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit winner: rows affected: %w", err)
	}
	if rows == 0 {
		// Already credited by a prior attempt with this idempotency key.
		return tx.Commit()
	}

	updateBalance := `UPDATE profiles SET balance = balance + ? WHERE user_id = ?`
	if _, err := tx.ExecContext(ctx, updateBalance, amount, userID); err != nil {
		return fmt.Errorf("credit winner: update balance: %w", err)
	}

	return tx.Commit()
}
