package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"ticketflow/internal/migrations"
	"ticketflow/internal/models"
	"ticketflow/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.Schema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Contact operations

// UpsertContact inserts the contact or refreshes its profile fields, keyed on
// the unique (remote_id, channel_id) pair. Concurrent resolution of the same
// identifier lands on the same row. The contact's ID is filled in on return.
func (d *Database) UpsertContact(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (remote_id, channel_id, display_name, is_group, accepts_audio)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(remote_id, channel_id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE contacts.display_name END
	`

	_, err := d.db.ExecContext(ctx, query,
		contact.RemoteID, contact.ChannelID, contact.DisplayName, contact.IsGroup, contact.AcceptsAudio)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}

	stored, err := d.GetContactByRemoteID(ctx, contact.RemoteID, contact.ChannelID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("contact missing after upsert: %s", contact.RemoteID)
	}
	*contact = *stored
	return nil
}

func (d *Database) GetContactByRemoteID(ctx context.Context, remoteID, channelID string) (*models.Contact, error) {
	query := `
		SELECT id, remote_id, channel_id, display_name, is_group, disable_bot, accepts_audio,
		       created_at, updated_at
		FROM contacts
		WHERE remote_id = ? AND channel_id = ?
	`

	contact := &models.Contact{}
	err := d.db.QueryRowContext(ctx, query, remoteID, channelID).Scan(
		&contact.ID,
		&contact.RemoteID,
		&contact.ChannelID,
		&contact.DisplayName,
		&contact.IsGroup,
		&contact.DisableBot,
		&contact.AcceptsAudio,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// SetContactDisableBot flips the per-contact automation switch.
func (d *Database) SetContactDisableBot(ctx context.Context, contactID int64, disabled bool) error {
	_, err := d.db.ExecContext(ctx, `UPDATE contacts SET disable_bot = ? WHERE id = ?`, disabled, contactID)
	if err != nil {
		return fmt.Errorf("failed to update contact bot flag: %w", err)
	}
	return nil
}

// Ticket operations

const ticketColumns = `id, contact_id, channel_id, status, queue_id, user_id, uses_integration,
	integration_id, flow_cursor, is_out_of_hour, amount_used_bot_queues, unread_messages,
	last_message, rated, created_at, updated_at`

func (d *Database) scanTicket(row *sql.Row) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := row.Scan(
		&ticket.ID,
		&ticket.ContactID,
		&ticket.ChannelID,
		&ticket.Status,
		&ticket.QueueID,
		&ticket.UserID,
		&ticket.UsesIntegration,
		&ticket.IntegrationID,
		&ticket.FlowCursor,
		&ticket.IsOutOfHour,
		&ticket.AmountUsedBotQueues,
		&ticket.UnreadMessages,
		&ticket.LastMessage,
		&ticket.Rated,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return ticket, nil
}

func (d *Database) GetTicketByID(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	return d.scanTicket(d.db.QueryRowContext(ctx, query, id))
}

// GetActiveTicket returns the single non-closed ticket for a conversation
// key, or nil.
func (d *Database) GetActiveTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE contact_id = ? AND channel_id = ? AND status != 'closed'`
	return d.scanTicket(d.db.QueryRowContext(ctx, query, contactID, channelID))
}

// GetLatestTicket returns the most recent ticket for a conversation key
// regardless of status, or nil.
func (d *Database) GetLatestTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE contact_id = ? AND channel_id = ?
		ORDER BY id DESC LIMIT 1`
	return d.scanTicket(d.db.QueryRowContext(ctx, query, contactID, channelID))
}

// CreateTicket inserts a new ticket and its tracking row. The partial unique
// index on active tickets makes a racing second insert fail rather than
// duplicate.
func (d *Database) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (contact_id, channel_id, status, unread_messages, last_message)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := d.db.ExecContext(ctx, query,
		ticket.ContactID, ticket.ChannelID, ticket.Status, ticket.UnreadMessages, ticket.LastMessage)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ticket id: %w", err)
	}
	ticket.ID = id

	if _, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ticket_tracking (ticket_id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("failed to create ticket tracking: %w", err)
	}

	return nil
}

// UpdateTicketStatus moves the ticket through its state machine.
func (d *Database) UpdateTicketStatus(ctx context.Context, ticketID int64, status models.TicketStatus) error {
	_, err := d.db.ExecContext(ctx, `UPDATE tickets SET status = ? WHERE id = ?`, status, ticketID)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	return nil
}

// UpdateTicketRouting persists the routing-owned fields. The update refuses
// to touch a ticket another writer closed in the meantime; callers treat zero
// affected rows as a conflict.
func (d *Database) UpdateTicketRouting(ctx context.Context, ticket *models.Ticket) (bool, error) {
	query := `
		UPDATE tickets
		SET status = ?, queue_id = ?, uses_integration = ?, integration_id = ?,
		    flow_cursor = ?, is_out_of_hour = ?, amount_used_bot_queues = ?
		WHERE id = ? AND status != 'closed'
	`

	result, err := d.db.ExecContext(ctx, query,
		ticket.Status, ticket.QueueID, ticket.UsesIntegration, ticket.IntegrationID,
		ticket.FlowCursor, ticket.IsOutOfHour, ticket.AmountUsedBotQueues, ticket.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update ticket routing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// UpdateTicketActivity refreshes the last-message preview and unread counter
// after a message was persisted.
func (d *Database) UpdateTicketActivity(ctx context.Context, ticketID int64, lastMessage string, unreadDelta int) error {
	query := `
		UPDATE tickets
		SET last_message = ?, unread_messages = unread_messages + ?
		WHERE id = ?
	`
	if _, err := d.db.ExecContext(ctx, query, lastMessage, unreadDelta, ticketID); err != nil {
		return fmt.Errorf("failed to update ticket activity: %w", err)
	}
	return nil
}

// Ticket tracking operations

func (d *Database) GetTicketTracking(ctx context.Context, ticketID int64) (*models.TicketTracking, error) {
	query := `SELECT ticket_id, queue_id, chatbot_at, menu_at, lgpd_accepted_at, updated_at FROM ticket_tracking WHERE ticket_id = ?`

	tracking := &models.TicketTracking{}
	err := d.db.QueryRowContext(ctx, query, ticketID).Scan(
		&tracking.TicketID,
		&tracking.QueueID,
		&tracking.ChatbotAt,
		&tracking.MenuAt,
		&tracking.LGPDAcceptedAt,
		&tracking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket tracking: %w", err)
	}
	return tracking, nil
}

// TouchTrackingChatbot stamps chatbot_at and mirrors the queue assignment.
func (d *Database) TouchTrackingChatbot(ctx context.Context, ticketID int64, queueID *int64, at time.Time) error {
	query := `
		INSERT INTO ticket_tracking (ticket_id, queue_id, chatbot_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ticket_id) DO UPDATE SET
			queue_id = excluded.queue_id,
			chatbot_at = excluded.chatbot_at,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := d.db.ExecContext(ctx, query, ticketID, queueID, at); err != nil {
		return fmt.Errorf("failed to touch ticket tracking: %w", err)
	}
	return nil
}

// TouchTrackingMenu stamps menu_at and chatbot_at when the queue menu goes
// out. menu_at is the marker menuSelection keys on; out-of-hours notices and
// other automation touch chatbot_at only, so they never make a later message
// look like a menu reply.
func (d *Database) TouchTrackingMenu(ctx context.Context, ticketID int64, at time.Time) error {
	query := `
		INSERT INTO ticket_tracking (ticket_id, menu_at, chatbot_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ticket_id) DO UPDATE SET
			menu_at = excluded.menu_at,
			chatbot_at = excluded.chatbot_at,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := d.db.ExecContext(ctx, query, ticketID, at, at); err != nil {
		return fmt.Errorf("failed to record menu dispatch on ticket tracking: %w", err)
	}
	return nil
}

// SetTrackingLGPDAccepted stamps lgpd_accepted_at without disturbing the
// chatbot fields.
func (d *Database) SetTrackingLGPDAccepted(ctx context.Context, ticketID int64, at time.Time) error {
	query := `
		INSERT INTO ticket_tracking (ticket_id, lgpd_accepted_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ticket_id) DO UPDATE SET
			lgpd_accepted_at = excluded.lgpd_accepted_at,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := d.db.ExecContext(ctx, query, ticketID, at); err != nil {
		return fmt.Errorf("failed to record consent on ticket tracking: %w", err)
	}
	return nil
}

// Message operations

const messageColumns = `id, transport_id, alt_id, ticket_id, contact_id, body, kind,
	media_ref, quoted_id, from_me, ack, ts, created_at`

func (d *Database) scanMessage(row *sql.Row) (*models.Message, error) {
	msg := &models.Message{}
	var altID, mediaRef, quotedID sql.NullString
	err := row.Scan(
		&msg.ID,
		&msg.TransportID,
		&altID,
		&msg.TicketID,
		&msg.ContactID,
		&msg.Body,
		&msg.Type,
		&mediaRef,
		&quotedID,
		&msg.FromMe,
		&msg.Ack,
		&msg.Timestamp,
		&msg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.AltID = altID.String
	msg.MediaRef = mediaRef.String
	msg.QuotedID = quotedID.String
	return msg, nil
}

// SaveMessage persists a message idempotently: a second insert with the same
// transport id is a no-op and reports created=false.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) (bool, error) {
	query := `
		INSERT INTO messages (transport_id, alt_id, ticket_id, contact_id, body, kind,
			media_ref, quoted_id, from_me, ack, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transport_id) DO NOTHING
	`

	result, err := d.db.ExecContext(ctx, query,
		msg.TransportID, nullable(msg.AltID), msg.TicketID, msg.ContactID, msg.Body, msg.Type,
		nullable(msg.MediaRef), nullable(msg.QuotedID), msg.FromMe, msg.Ack, msg.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to save message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get message id: %w", err)
	}
	msg.ID = id
	return true, nil
}

func (d *Database) GetMessageByTransportID(ctx context.Context, transportID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE transport_id = ?`
	return d.scanMessage(d.db.QueryRowContext(ctx, query, transportID))
}

func (d *Database) GetMessageByAltID(ctx context.Context, altID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE alt_id = ?`
	return d.scanMessage(d.db.QueryRowContext(ctx, query, altID))
}

// GetMessageByAnyID resolves a message by transport id first, then by the
// secondary identifier scheme. Receipt sources disagree on which one they
// reference.
func (d *Database) GetMessageByAnyID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := d.GetMessageByTransportID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg != nil {
		return msg, nil
	}
	return d.GetMessageByAltID(ctx, id)
}

// UpdateMessageAck raises the ack level of a message. The guard in the WHERE
// clause makes the level monotonic regardless of arrival order or
// duplication; changed=false means the candidate did not beat the stored
// level.
func (d *Database) UpdateMessageAck(ctx context.Context, messageID int64, level int) (bool, error) {
	query := `UPDATE messages SET ack = ? WHERE id = ? AND ack < ?`

	result, err := d.db.ExecContext(ctx, query, level, messageID, level)
	if err != nil {
		return false, fmt.Errorf("failed to update message ack: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// GetMessageProjection re-reads the denormalized message+ticket+contact view
// emitted to the realtime notifier.
func (d *Database) GetMessageProjection(ctx context.Context, messageID int64) (*models.MessageProjection, error) {
	query := `
		SELECT m.id, m.transport_id, m.alt_id, m.ticket_id, m.contact_id, m.body, m.kind,
		       m.media_ref, m.quoted_id, m.from_me, m.ack, m.ts, m.created_at,
		       t.id, t.contact_id, t.channel_id, t.status, t.queue_id, t.user_id, t.uses_integration,
		       t.integration_id, t.flow_cursor, t.is_out_of_hour, t.amount_used_bot_queues,
		       t.unread_messages, t.last_message, t.rated, t.created_at, t.updated_at,
		       c.id, c.remote_id, c.channel_id, c.display_name, c.is_group, c.disable_bot,
		       c.accepts_audio, c.created_at, c.updated_at
		FROM messages m
		JOIN tickets t ON t.id = m.ticket_id
		JOIN contacts c ON c.id = m.contact_id
		WHERE m.id = ?
	`

	proj := &models.MessageProjection{}
	var altID, mediaRef, quotedID sql.NullString
	err := d.db.QueryRowContext(ctx, query, messageID).Scan(
		&proj.Message.ID, &proj.Message.TransportID, &altID, &proj.Message.TicketID,
		&proj.Message.ContactID, &proj.Message.Body, &proj.Message.Type,
		&mediaRef, &quotedID, &proj.Message.FromMe, &proj.Message.Ack,
		&proj.Message.Timestamp, &proj.Message.CreatedAt,
		&proj.Ticket.ID, &proj.Ticket.ContactID, &proj.Ticket.ChannelID, &proj.Ticket.Status,
		&proj.Ticket.QueueID, &proj.Ticket.UserID, &proj.Ticket.UsesIntegration,
		&proj.Ticket.IntegrationID, &proj.Ticket.FlowCursor, &proj.Ticket.IsOutOfHour,
		&proj.Ticket.AmountUsedBotQueues, &proj.Ticket.UnreadMessages, &proj.Ticket.LastMessage,
		&proj.Ticket.Rated, &proj.Ticket.CreatedAt, &proj.Ticket.UpdatedAt,
		&proj.Contact.ID, &proj.Contact.RemoteID, &proj.Contact.ChannelID, &proj.Contact.DisplayName,
		&proj.Contact.IsGroup, &proj.Contact.DisableBot, &proj.Contact.AcceptsAudio,
		&proj.Contact.CreatedAt, &proj.Contact.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message projection: %w", err)
	}
	proj.Message.AltID = altID.String
	proj.Message.MediaRef = mediaRef.String
	proj.Message.QuotedID = quotedID.String
	return proj, nil
}

// GetRecentMessages returns the newest messages of a ticket in chronological
// order, for AI history assembly.
func (d *Database) GetRecentMessages(ctx context.Context, ticketID int64, limit int) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE ticket_id = ?
		ORDER BY id DESC LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, ticketID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		msg := models.Message{}
		var altID, mediaRef, quotedID sql.NullString
		if err := rows.Scan(
			&msg.ID, &msg.TransportID, &altID, &msg.TicketID, &msg.ContactID,
			&msg.Body, &msg.Type, &mediaRef, &quotedID, &msg.FromMe, &msg.Ack,
			&msg.Timestamp, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recent message: %w", err)
		}
		msg.AltID = altID.String
		msg.MediaRef = mediaRef.String
		msg.QuotedID = quotedID.String
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Dedup operations

// MarkProcessed records a transport message id and reports whether it had
// been seen before.
func (d *Database) MarkProcessed(ctx context.Context, transportID string) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_messages (transport_id) VALUES (?)`, transportID)
	if err != nil {
		return false, fmt.Errorf("failed to mark message processed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 0, nil
}

// Audit and rating operations

func (d *Database) SaveAuditLog(ctx context.Context, entry *models.AuditLog) error {
	query := `INSERT INTO ticket_audit_logs (id, ticket_id, rule, queue_id) VALUES (?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, query, entry.ID, entry.TicketID, entry.Rule, entry.QueueID); err != nil {
		return fmt.Errorf("failed to save audit log: %w", err)
	}
	return nil
}

// SaveRating records the score and marks the ticket rated. A second rating
// for the same ticket is ignored.
func (d *Database) SaveRating(ctx context.Context, ticketID int64, score int) error {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ticket_ratings (ticket_id, score) VALUES (?, ?)`, ticketID, score)
	if err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil
	}
	if _, err := d.db.ExecContext(ctx, `UPDATE tickets SET rated = 1 WHERE id = ?`, ticketID); err != nil {
		return fmt.Errorf("failed to mark ticket rated: %w", err)
	}
	return nil
}

// Cleanup operations

func (d *Database) CleanupProcessedMessages(retentionDays int) error {
	query := `DELETE FROM processed_messages WHERE seen_at < datetime('now', '-' || ? || ' days')`
	if _, err := d.db.Exec(query, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup processed messages: %w", err)
	}
	return nil
}

func (d *Database) CleanupAuditLogs(retentionDays int) error {
	query := `
		DELETE FROM ticket_audit_logs
		WHERE created_at < datetime('now', '-' || ? || ' days')
		  AND ticket_id IN (SELECT id FROM tickets WHERE status = 'closed')
	`
	if _, err := d.db.Exec(query, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
