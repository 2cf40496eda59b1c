package integration_test

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ticketflow/internal/database"
	"ticketflow/internal/models"
	"ticketflow/internal/service"
	"ticketflow/pkg/transport/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// capturingSender stands in for the transport gateway and records everything
// the engine sends out.
type capturingSender struct {
	mu    sync.Mutex
	texts []string
	menus []types.Menu
}

func (s *capturingSender) SendText(ctx context.Context, channelID, to, body string) (*types.SendResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, body)
	return &types.SendResponse{MessageID: fmt.Sprintf("out-%d", len(s.texts))}, nil
}

func (s *capturingSender) SendMenu(ctx context.Context, channelID, to string, menu types.Menu) (*types.SendResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menus = append(s.menus, menu)
	return &types.SendResponse{MessageID: fmt.Sprintf("menu-%d", len(s.menus))}, nil
}

func (s *capturingSender) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func (s *capturingSender) Menus() []types.Menu {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Menu(nil), s.menus...)
}

// TestEnvironment wires the full ingestion stack over a real SQLite database
// and a capturing sender.
type TestEnvironment struct {
	DB       *database.Database
	Sender   *capturingSender
	Pipeline *service.Pipeline
	Receipts *service.ReceiptService
	Router   *service.Router

	sequence atomic.Int64
}

func newTestEnvironment(t *testing.T, connections ...models.Connection) *TestEnvironment {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.New(filepath.Join(t.TempDir(), "ticketflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sender := &capturingSender{}
	contacts := service.NewContactService(db, logger)
	tickets := service.NewTicketService(db, nil, logger)
	router := service.NewRouter(db, tickets, sender, nil, nil, logger)
	router.SetDebounceWindow(5 * time.Millisecond)
	t.Cleanup(router.Stop)

	registry := service.NewConnectionRegistry(connections)
	dedup := service.NewDedupFilter(db, logger)
	pipeline := service.NewPipeline(dedup, service.NewNormalizer(), contacts, tickets, router, registry, db, nil, logger)
	receipts := service.NewReceiptService(db, nil, logger)

	return &TestEnvironment{
		DB:       db,
		Sender:   sender,
		Pipeline: pipeline,
		Receipts: receipts,
		Router:   router,
	}
}

// Say ingests one inbound text message from the given sender.
func (e *TestEnvironment) Say(t *testing.T, channelID, from, body string) {
	t.Helper()
	event := &models.TransportMessageEvent{
		ID:        fmt.Sprintf("msg-%d", e.sequence.Add(1)),
		ChannelID: channelID,
		From:      from,
		Timestamp: time.Now().Unix(),
		Payload: models.MessagePayload{
			Text: &models.TextPayload{Body: body},
		},
	}
	require.NoError(t, e.Pipeline.IngestMessage(context.Background(), event))
}

// ActiveTicket returns the current non-closed ticket for a sender, or nil.
func (e *TestEnvironment) ActiveTicket(t *testing.T, channelID, remoteID string) *models.Ticket {
	t.Helper()
	ctx := context.Background()
	contact, err := e.DB.GetContactByRemoteID(ctx, remoteID, channelID)
	require.NoError(t, err)
	if contact == nil {
		return nil
	}
	ticket, err := e.DB.GetActiveTicket(ctx, contact.ID, channelID)
	require.NoError(t, err)
	return ticket
}

// LatestTicket returns the most recent ticket for a sender regardless of
// status.
func (e *TestEnvironment) LatestTicket(t *testing.T, channelID, remoteID string) *models.Ticket {
	t.Helper()
	ctx := context.Background()
	contact, err := e.DB.GetContactByRemoteID(ctx, remoteID, channelID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	ticket, err := e.DB.GetLatestTicket(ctx, contact.ID, channelID)
	require.NoError(t, err)
	return ticket
}

// WaitMenus blocks until the sender has dispatched at least n menus.
func (e *TestEnvironment) WaitMenus(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(e.Sender.Menus()) >= n
	}, 2*time.Second, time.Millisecond)
}

// WaitTexts blocks until the sender has dispatched at least n plain texts.
func (e *TestEnvironment) WaitTexts(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(e.Sender.Texts()) >= n
	}, 2*time.Second, time.Millisecond)
}

func supportConnection() models.Connection {
	return models.Connection{
		ID:                "main",
		Name:              "Main",
		GreetingMessage:   "Welcome! Choose an option:",
		FarewellMessage:   "Thanks for contacting us, goodbye!",
		ReactivationToken: "#bot",
		MenuStyle:         "text",
		MaxUseBotQueues:   3,
		TimeUseBotQueues:  5,
		Queues: []models.QueueConfig{
			{ID: 10, Name: "Vendas", GreetingMessage: "You reached Vendas."},
			{ID: 20, Name: "Suporte", GreetingMessage: "You reached Suporte."},
		},
	}
}
