package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"ticketflow/internal/models"
	"ticketflow/pkg/ai"
	"ticketflow/pkg/flow"
	"ticketflow/pkg/transport/types"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeStore is an in-memory store implementing every persistence interface
// the services declare. Semantics mirror the real database layer: active
// ticket uniqueness, idempotent message saves, monotonic ack updates.
type fakeStore struct {
	mu sync.Mutex

	nextContactID int64
	nextTicketID  int64
	nextMessageID int64

	contacts  map[string]*models.Contact
	tickets   map[int64]*models.Ticket
	messages  []*models.Message
	tracking  map[int64]*models.TicketTracking
	audits    []models.AuditLog
	ratings   map[int64]int
	processed map[string]struct{}

	markProcessedErr error
	createTicketErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contacts:  make(map[string]*models.Contact),
		tickets:   make(map[int64]*models.Ticket),
		tracking:  make(map[int64]*models.TicketTracking),
		ratings:   make(map[int64]int),
		processed: make(map[string]struct{}),
	}
}

func contactKey(remoteID, channelID string) string {
	return remoteID + "|" + channelID
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	c := *t
	if t.QueueID != nil {
		v := *t.QueueID
		c.QueueID = &v
	}
	if t.UserID != nil {
		v := *t.UserID
		c.UserID = &v
	}
	if t.IntegrationID != nil {
		v := *t.IntegrationID
		c.IntegrationID = &v
	}
	return &c
}

// --- ContactStore ---

func (s *fakeStore) UpsertContact(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := contactKey(contact.RemoteID, contact.ChannelID)
	if existing, ok := s.contacts[key]; ok {
		if contact.DisplayName != "" {
			existing.DisplayName = contact.DisplayName
		}
		*contact = *existing
		return nil
	}

	s.nextContactID++
	contact.ID = s.nextContactID
	stored := *contact
	s.contacts[key] = &stored
	return nil
}

func (s *fakeStore) GetContactByRemoteID(ctx context.Context, remoteID, channelID string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.contacts[contactKey(remoteID, channelID)]; ok {
		c := *existing
		return &c, nil
	}
	return nil, nil
}

func (s *fakeStore) SetContactDisableBot(ctx context.Context, contactID int64, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.contacts {
		if c.ID == contactID {
			c.DisableBot = disabled
			return nil
		}
	}
	return fmt.Errorf("contact %d not found", contactID)
}

// --- TicketStore ---

func (s *fakeStore) GetActiveTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tickets {
		if t.ContactID == contactID && t.ChannelID == channelID && t.Status != models.TicketStatusClosed {
			return cloneTicket(t), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetLatestTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Ticket
	for _, t := range s.tickets {
		if t.ContactID == contactID && t.ChannelID == channelID {
			if latest == nil || t.ID > latest.ID {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneTicket(latest), nil
}

func (s *fakeStore) GetTicketByID(ctx context.Context, id int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tickets[id]; ok {
		return cloneTicket(t), nil
	}
	return nil, nil
}

func (s *fakeStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createTicketErr != nil {
		return s.createTicketErr
	}
	for _, t := range s.tickets {
		if t.ContactID == ticket.ContactID && t.ChannelID == ticket.ChannelID && t.Status != models.TicketStatusClosed {
			return fmt.Errorf("UNIQUE constraint failed: tickets.contact_id, tickets.channel_id")
		}
	}

	s.nextTicketID++
	ticket.ID = s.nextTicketID
	ticket.CreatedAt = time.Now().UTC()
	s.tickets[ticket.ID] = cloneTicket(ticket)
	if _, ok := s.tracking[ticket.ID]; !ok {
		s.tracking[ticket.ID] = &models.TicketTracking{TicketID: ticket.ID}
	}
	return nil
}

func (s *fakeStore) UpdateTicketStatus(ctx context.Context, ticketID int64, status models.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket %d not found", ticketID)
	}
	t.Status = status
	return nil
}

func (s *fakeStore) UpdateTicketActivity(ctx context.Context, ticketID int64, lastMessage string, unreadDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket %d not found", ticketID)
	}
	t.LastMessage = lastMessage
	t.UnreadMessages += unreadDelta
	return nil
}

// --- RoutingStore ---

func (s *fakeStore) UpdateTicketRouting(ctx context.Context, ticket *models.Ticket) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tickets[ticket.ID]
	if !ok || stored.Status == models.TicketStatusClosed {
		return false, nil
	}
	updated := cloneTicket(ticket)
	updated.Status = stored.Status
	s.tickets[ticket.ID] = updated
	return true, nil
}

func (s *fakeStore) GetTicketTracking(ctx context.Context, ticketID int64) (*models.TicketTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.tracking[ticketID]
	if !ok {
		return nil, nil
	}
	c := *tr
	return &c, nil
}

func (s *fakeStore) TouchTrackingChatbot(ctx context.Context, ticketID int64, queueID *int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.tracking[ticketID]
	if !ok {
		tr = &models.TicketTracking{TicketID: ticketID}
		s.tracking[ticketID] = tr
	}
	tr.QueueID = queueID
	tr.ChatbotAt = &at
	tr.UpdatedAt = at
	return nil
}

func (s *fakeStore) TouchTrackingMenu(ctx context.Context, ticketID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.tracking[ticketID]
	if !ok {
		tr = &models.TicketTracking{TicketID: ticketID}
		s.tracking[ticketID] = tr
	}
	tr.MenuAt = &at
	tr.ChatbotAt = &at
	tr.UpdatedAt = at
	return nil
}

func (s *fakeStore) SetTrackingLGPDAccepted(ctx context.Context, ticketID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.tracking[ticketID]
	if !ok {
		tr = &models.TicketTracking{TicketID: ticketID}
		s.tracking[ticketID] = tr
	}
	tr.LGPDAcceptedAt = &at
	tr.UpdatedAt = at
	return nil
}

func (s *fakeStore) SaveAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audits = append(s.audits, *entry)
	return nil
}

func (s *fakeStore) SaveRating(ctx context.Context, ticketID int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ratings[ticketID]; !ok {
		s.ratings[ticketID] = score
	}
	if t, ok := s.tickets[ticketID]; ok {
		t.Rated = true
	}
	return nil
}

func (s *fakeStore) GetRecentMessages(ctx context.Context, ticketID int64, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Message
	for _, m := range s.messages {
		if m.TicketID == ticketID {
			result = append(result, *m)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

// --- ReceiptStore ---

func (s *fakeStore) GetMessageByAnyID(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.TransportID == id || (m.AltID != "" && m.AltID == id) {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateMessageAck(ctx context.Context, messageID int64, level int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == messageID {
			if m.Ack >= level {
				return false, nil
			}
			m.Ack = level
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) GetMessageProjection(ctx context.Context, messageID int64) (*models.MessageProjection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == messageID {
			projection := &models.MessageProjection{Message: *m}
			if t, ok := s.tickets[m.TicketID]; ok {
				projection.Ticket = *cloneTicket(t)
			}
			for _, c := range s.contacts {
				if c.ID == m.ContactID {
					projection.Contact = *c
					break
				}
			}
			return projection, nil
		}
	}
	return nil, nil
}

// --- PipelineStore ---

func (s *fakeStore) SaveMessage(ctx context.Context, msg *models.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.TransportID == msg.TransportID {
			return false, nil
		}
	}

	s.nextMessageID++
	msg.ID = s.nextMessageID
	stored := *msg
	s.messages = append(s.messages, &stored)
	return true, nil
}

// --- DedupStore ---

func (s *fakeStore) MarkProcessed(ctx context.Context, transportID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.markProcessedErr != nil {
		return false, s.markProcessedErr
	}
	if _, ok := s.processed[transportID]; ok {
		return true, nil
	}
	s.processed[transportID] = struct{}{}
	return false, nil
}

// --- test accessors ---

func (s *fakeStore) ticketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) storedTicket(id int64) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		return cloneTicket(t)
	}
	return nil
}

func (s *fakeStore) auditRules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		rules = append(rules, a.Rule)
	}
	return rules
}

func (s *fakeStore) seedContact(remoteID, channelID string) *models.Contact {
	contact := &models.Contact{RemoteID: remoteID, ChannelID: channelID, AcceptsAudio: true}
	_ = s.UpsertContact(context.Background(), contact)
	return contact
}

func (s *fakeStore) seedTicket(contactID int64, channelID string, status models.TicketStatus) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTicketID++
	ticket := &models.Ticket{
		ID:        s.nextTicketID,
		ContactID: contactID,
		ChannelID: channelID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	s.tickets[ticket.ID] = cloneTicket(ticket)
	s.tracking[ticket.ID] = &models.TicketTracking{TicketID: ticket.ID}
	return ticket
}

func (s *fakeStore) seedMessage(transportID, altID string, ticketID, contactID int64, ack int) *models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMessageID++
	msg := &models.Message{
		ID:          s.nextMessageID,
		TransportID: transportID,
		AltID:       altID,
		TicketID:    ticketID,
		ContactID:   contactID,
		Type:        models.MessageTypeText,
		FromMe:      true,
		Ack:         ack,
		Timestamp:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	c := *msg
	return &c
}

// fakeSender records outbound sends.
type sentText struct {
	ChannelID string
	To        string
	Body      string
}

type sentMenu struct {
	ChannelID string
	To        string
	Menu      types.Menu
}

type fakeSender struct {
	mu    sync.Mutex
	err   error
	texts []sentText
	menus []sentMenu
}

func (f *fakeSender) SendText(ctx context.Context, channelID, to, body string) (*types.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, sentText{ChannelID: channelID, To: to, Body: body})
	return &types.SendResponse{MessageID: fmt.Sprintf("out-%d", len(f.texts))}, nil
}

func (f *fakeSender) SendMenu(ctx context.Context, channelID, to string, menu types.Menu) (*types.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.menus = append(f.menus, sentMenu{ChannelID: channelID, To: to, Menu: menu})
	return &types.SendResponse{MessageID: fmt.Sprintf("menu-%d", len(f.menus))}, nil
}

func (f *fakeSender) Texts() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.texts...)
}

func (f *fakeSender) Menus() []sentMenu {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMenu(nil), f.menus...)
}

// fakeAI is a canned AI handler.
type fakeAI struct {
	mu       sync.Mutex
	provider string
	reply    string
	err      error
	requests []ai.GenerateRequest
}

func (f *fakeAI) Provider() string {
	return f.provider
}

func (f *fakeAI) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeAI) Requests() []ai.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.GenerateRequest(nil), f.requests...)
}

// fakeFlow is a canned flow handler.
type fakeFlow struct {
	mu     sync.Mutex
	result *flow.NodeResult
	err    error
	nodes  []string
}

func (f *fakeFlow) RunNode(ctx context.Context, flowID, nodeID string, nodeCtx flow.NodeContext) (*flow.NodeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes = append(f.nodes, nodeID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeNotifier records realtime emissions.
type fakeNotifier struct {
	mu             sync.Mutex
	ticketActions  []string
	messageActions []string
}

func (f *fakeNotifier) EmitTicket(action string, ticket *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticketActions = append(f.ticketActions, action)
}

func (f *fakeNotifier) EmitMessage(action string, projection *models.MessageProjection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageActions = append(f.messageActions, action)
}

func (f *fakeNotifier) TicketActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ticketActions...)
}

func (f *fakeNotifier) MessageActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messageActions...)
}

// routerFixture wires a Router over the in-memory store with a short debounce
// window.
type routerFixture struct {
	store   *fakeStore
	sender  *fakeSender
	ai      *fakeAI
	flow    *fakeFlow
	tickets *TicketService
	router  *Router
}

func newRouterFixture() *routerFixture {
	store := newFakeStore()
	sender := &fakeSender{}
	aiClient := &fakeAI{provider: "openai", reply: "Hello from the assistant"}
	flowGW := &fakeFlow{}
	tickets := NewTicketService(store, nil, testLogger())
	router := NewRouter(store, tickets, sender, aiClient, flowGW, testLogger())
	router.SetDebounceWindow(5 * time.Millisecond)
	return &routerFixture{
		store:   store,
		sender:  sender,
		ai:      aiClient,
		flow:    flowGW,
		tickets: tickets,
		router:  router,
	}
}

func testConnection(queues ...models.QueueConfig) *models.Connection {
	return &models.Connection{
		ID:                "main",
		Name:              "Main",
		GreetingMessage:   "Welcome! Choose an option:",
		FarewellMessage:   "Thanks for contacting us, goodbye!",
		ReactivationToken: "#bot",
		MenuStyle:         "text",
		MaxUseBotQueues:   3,
		TimeUseBotQueues:  5,
		Queues:            queues,
	}
}

func textEnvelope(id, channelID, senderID, body string) *models.MessageEnvelope {
	return &models.MessageEnvelope{
		ID:        id,
		ChannelID: channelID,
		SenderID:  senderID,
		Type:      models.MessageTypeText,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
}

func textEvent(id, channelID, from, body string) *models.TransportMessageEvent {
	return &models.TransportMessageEvent{
		ID:        id,
		ChannelID: channelID,
		From:      from,
		Timestamp: time.Now().Unix(),
		Payload: models.MessagePayload{
			Text: &models.TextPayload{Body: body},
		},
	}
}
