package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"ticketflow/internal/constants"
	"ticketflow/internal/errors"
	"ticketflow/internal/models"
	"ticketflow/pkg/ai"
	"ticketflow/pkg/flow"
	"ticketflow/pkg/transport/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Routing rule names recorded in the audit trail.
const (
	ruleReactivation  = "reactivation"
	ruleRating        = "rating"
	ruleLGPD          = "lgpd-gate"
	ruleOutOfHours    = "out-of-hours"
	ruleAIHandler     = "ai-handler"
	ruleFlowHandler   = "flow-handler"
	ruleQueueAuto     = "queue-auto-assign"
	ruleQueueMenu     = "queue-menu"
	ruleQueueSelect   = "queue-select"
	ruleChatbotSelect = "chatbot-select"
	ruleMenuExit      = "menu-exit"
)

// FlowCursor sentinel marking a ticket that is awaiting a chatbot sub-menu
// selection for its assigned queue.
const chatbotMenuCursor = "chatbot-menu"

// RoutingStore is the persistence surface the routing engine needs.
type RoutingStore interface {
	UpdateTicketRouting(ctx context.Context, ticket *models.Ticket) (bool, error)
	GetLatestTicket(ctx context.Context, contactID int64, channelID string) (*models.Ticket, error)
	GetTicketTracking(ctx context.Context, ticketID int64) (*models.TicketTracking, error)
	TouchTrackingChatbot(ctx context.Context, ticketID int64, queueID *int64, at time.Time) error
	TouchTrackingMenu(ctx context.Context, ticketID int64, at time.Time) error
	SetTrackingLGPDAccepted(ctx context.Context, ticketID int64, at time.Time) error
	SaveAuditLog(ctx context.Context, entry *models.AuditLog) error
	SaveRating(ctx context.Context, ticketID int64, score int) error
	SetContactDisableBot(ctx context.Context, contactID int64, disabled bool) error
	GetRecentMessages(ctx context.Context, ticketID int64, limit int) ([]models.Message, error)
}

// AIHandler is the AI provider adapter contract.
type AIHandler interface {
	Provider() string
	Generate(ctx context.Context, req ai.GenerateRequest) (string, error)
}

// FlowHandler is the scripted-flow engine contract.
type FlowHandler interface {
	RunNode(ctx context.Context, flowID, nodeID string, nodeCtx flow.NodeContext) (*flow.NodeResult, error)
}

// Router decides which handler owns each surviving envelope and invokes it.
// The decision list is a fixed-order short-circuiting chain; exactly one
// rule fires per envelope, or none when a human owns the conversation.
type Router struct {
	store     RoutingStore
	tickets   *TicketService
	sender    types.Client
	aiClient  AIHandler
	flowGW    FlowHandler
	welcome   *WelcomeLock
	cooldowns *CooldownGuard
	debouncer *Debouncer
	logger    *logrus.Logger

	// debounceWindow is the quiet window for templated notice sends.
	debounceWindow time.Duration
}

func NewRouter(store RoutingStore, tickets *TicketService, sender types.Client, aiClient AIHandler, flowGW FlowHandler, logger *logrus.Logger) *Router {
	return &Router{
		store:          store,
		tickets:        tickets,
		sender:         sender,
		aiClient:       aiClient,
		flowGW:         flowGW,
		welcome:        NewWelcomeLock(),
		cooldowns:      NewCooldownGuard(),
		debouncer:      NewDebouncer(),
		logger:         logger,
		debounceWindow: constants.DefaultDebounceWindowMs * time.Millisecond,
	}
}

// SetDebounceWindow overrides the quiet window for templated sends.
func (r *Router) SetDebounceWindow(window time.Duration) {
	r.debounceWindow = window
}

// Stop cancels pending debounced sends.
func (r *Router) Stop() {
	r.debouncer.Stop()
}

// Route runs the decision chain for one envelope. Ticket-mutation conflicts
// are swallowed with a warning: the inbound message was already persisted,
// losing a routing race is not an automation failure.
func (r *Router) Route(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	if envelope.FromMe {
		return nil
	}
	switch envelope.Type {
	case models.MessageTypeReaction, models.MessageTypeEdit, models.MessageTypeProtocol:
		return nil
	}
	if contact.IsGroup && !conn.GroupsAsTickets {
		return nil
	}

	err := r.route(ctx, conn, contact, ticket, envelope)
	if errors.IsCode(err, errors.ErrCodeTicketConflict) {
		r.logger.WithError(err).WithField("ticket_id", ticket.ID).
			Warn("Routing lost a ticket race, message already persisted")
		return nil
	}
	return err
}

func (r *Router) route(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	body := strings.TrimSpace(envelope.Body)

	// 1. Automation paused for this contact: stay silent unless the exact
	// reactivation token arrives.
	if contact.DisableBot {
		if envelope.HasText() && body == conn.ReactivationToken {
			if err := r.store.SetContactDisableBot(ctx, contact.ID, false); err != nil {
				return err
			}
			contact.DisableBot = false
			r.audit(ctx, ticket.ID, ruleReactivation, nil)
			r.sendNow(ctx, conn, contact, "Automation re-enabled.")
		}
		return nil
	}

	// 2. LGPD consent gate.
	if conn.LGPD != nil && conn.LGPD.Enabled {
		if handled, err := r.lgpdGate(ctx, conn, contact, ticket, body); handled || err != nil {
			return err
		}
	}

	// 3. Business hours. The first in-hours message after an out-of-hours
	// episode clears the flag and gives the usage counter back.
	if conn.Schedule != nil {
		if !conn.Schedule.Contains(envelope.Timestamp) {
			return r.outOfHours(ctx, conn, contact, ticket)
		}
		if ticket.IsOutOfHour {
			ticket.IsOutOfHour = false
			ticket.AmountUsedBotQueues = 0
			if err := r.updateRouting(ctx, ticket); err != nil {
				return err
			}
		}
	}

	// 4. AI assistant owns unclaimed tickets on connections with a binding.
	if conn.AIBinding != nil && ticket.Unassigned() && envelope.HasText() {
		return r.dispatchAI(ctx, conn, contact, ticket, envelope)
	}

	// 5. Scripted flow, while no queue owns the ticket.
	if conn.FlowBinding != nil && ticket.QueueID == nil {
		return r.dispatchFlow(ctx, conn, contact, ticket, envelope)
	}

	// 6. Queue/chatbot menu sub-machine.
	if len(conn.Queues) > 0 && ticket.QueueID == nil {
		return r.queueMenu(ctx, conn, contact, ticket, envelope)
	}

	// 7. A queue with a chatbot sub-menu is mid-selection.
	if ticket.QueueID != nil && ticket.FlowCursor == chatbotMenuCursor {
		return r.chatbotStep(ctx, conn, contact, ticket, envelope)
	}

	// 8. Human territory; no automated action.
	return nil
}

// lgpdGate holds brand-new tickets in the lgpd status until consent arrives.
// Returns handled=true when the gate consumed the message.
func (r *Router) lgpdGate(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, body string) (bool, error) {
	switch ticket.Status {
	case models.TicketStatusPending:
		tracking, err := r.store.GetTicketTracking(ctx, ticket.ID)
		if err != nil {
			return false, err
		}
		// Only brand-new tickets are gated; anything automation already
		// touched, or that passed the gate before, has consent on record.
		if tracking != nil && (tracking.ChatbotAt != nil || tracking.LGPDAcceptedAt != nil) {
			return false, nil
		}
		if err := r.tickets.SetStatus(ctx, ticket, models.TicketStatusLGPD); err != nil {
			return false, err
		}
		r.audit(ctx, ticket.ID, ruleLGPD, nil)
		if r.cooldowns.Allow(cooldownKey(ticket.ID, "lgpd"), r.botWindow(conn)) {
			r.sendDebounced(conn, contact, ticket.ID, conn.LGPD.Message)
		}
		return true, nil

	case models.TicketStatusLGPD:
		if isAffirmative(body) {
			if err := r.store.SetTrackingLGPDAccepted(ctx, ticket.ID, time.Now().UTC()); err != nil {
				return false, err
			}
			if err := r.tickets.SetStatus(ctx, ticket, models.TicketStatusPending); err != nil {
				return false, err
			}
			// Consent recorded; the message that granted it is consumed,
			// the next one routes normally.
			return true, nil
		}
		if r.cooldowns.Allow(cooldownKey(ticket.ID, "lgpd"), r.botWindow(conn)) {
			r.sendDebounced(conn, contact, ticket.ID, conn.LGPD.Message)
		}
		return true, nil
	}

	return false, nil
}

// outOfHours sends the configured notice at most once per cooldown window,
// bounded by the connection's usage cap.
func (r *Router) outOfHours(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket) error {
	if ticket.AmountUsedBotQueues >= conn.MaxUseBotQueues {
		return nil
	}
	if !r.cooldowns.Allow(cooldownKey(ticket.ID, "out-of-hours"), r.botWindow(conn)) {
		return nil
	}

	ticket.IsOutOfHour = true
	ticket.AmountUsedBotQueues++
	if err := r.updateRouting(ctx, ticket); err != nil {
		return err
	}
	if err := r.store.TouchTrackingChatbot(ctx, ticket.ID, ticket.QueueID, time.Now().UTC()); err != nil {
		return err
	}

	r.audit(ctx, ticket.ID, ruleOutOfHours, nil)
	if conn.OutOfHoursMessage != "" {
		r.sendDebounced(conn, contact, ticket.ID, conn.OutOfHoursMessage)
	}
	return nil
}

// dispatchAI forwards the turn to the AI handler. Handler failures surface
// as a single apologetic, provider-attributed notice; they never crash the
// ingestion loop.
func (r *Router) dispatchAI(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	binding := conn.AIBinding

	if !ticket.UsesIntegration {
		ticket.UsesIntegration = true
		integrationID := binding.IntegrationID
		ticket.IntegrationID = &integrationID
		if err := r.updateRouting(ctx, ticket); err != nil {
			return err
		}
	}

	maxHistory := binding.MaxHistory
	if maxHistory <= 0 {
		maxHistory = constants.DefaultAIMaxHistory
	}
	recent, err := r.store.GetRecentMessages(ctx, ticket.ID, maxHistory)
	if err != nil {
		return err
	}

	history := make([]ai.Turn, 0, len(recent))
	for _, msg := range recent {
		if msg.TransportID == envelope.ID || msg.Body == "" {
			continue
		}
		role := "user"
		if msg.FromMe {
			role = "assistant"
		}
		history = append(history, ai.Turn{Role: role, Content: msg.Body})
	}

	r.audit(ctx, ticket.ID, ruleAIHandler, nil)

	reply, err := r.aiClient.Generate(ctx, ai.GenerateRequest{
		SystemPrompt: binding.SystemPrompt,
		History:      history,
		UserTurn:     envelope.Body,
	})
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"ticket_id": ticket.ID,
			"provider":  r.aiClient.Provider(),
		}).Error("AI handler failed")
		r.sendNow(ctx, conn, contact, errors.GetUserMessage(err))
		return nil
	}

	if reply != "" {
		r.sendNow(ctx, conn, contact, reply)
	}
	return nil
}

// dispatchFlow advances the scripted flow by one node and applies whatever
// the node decided.
func (r *Router) dispatchFlow(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	binding := conn.FlowBinding

	nodeID := ticket.FlowCursor
	if nodeID == "" || nodeID == chatbotMenuCursor {
		nodeID = binding.EntryNodeID
	}

	result, err := r.flowGW.RunNode(ctx, binding.FlowID, nodeID, flow.NodeContext{
		TicketID:  ticket.ID,
		ContactID: contact.ID,
		UserInput: envelope.Body,
	})
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"ticket_id": ticket.ID,
			"flow_id":   binding.FlowID,
			"node_id":   nodeID,
		}).Error("Flow handler failed")
		// Menu/automation failures are silent to the end user.
		return nil
	}

	ticket.FlowCursor = result.NextNodeID
	ticket.UsesIntegration = true
	integrationID := binding.IntegrationID
	ticket.IntegrationID = &integrationID
	if result.AssignQueueID != nil {
		ticket.QueueID = result.AssignQueueID
	}
	if err := r.updateRouting(ctx, ticket); err != nil {
		return err
	}

	r.audit(ctx, ticket.ID, ruleFlowHandler, result.AssignQueueID)

	if result.Reply != "" {
		r.sendNow(ctx, conn, contact, result.Reply)
	}
	if result.CloseTicket {
		return r.closeWithFarewell(ctx, conn, contact, ticket)
	}
	return nil
}

// queueMenu is the first-contact menu sub-machine for tickets without a
// queue.
func (r *Router) queueMenu(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	tracking, err := r.store.GetTicketTracking(ctx, ticket.ID)
	if err != nil {
		return err
	}

	// Only a dispatched menu makes a reply a selection. chatbot_at is not
	// enough: out-of-hours notices stamp it too.
	menuPresented := tracking != nil && tracking.MenuAt != nil

	if menuPresented && envelope.HasText() {
		return r.menuSelection(ctx, conn, contact, ticket, strings.TrimSpace(envelope.Body))
	}

	// First contact. Single queue with no sub-menu skips the menu entirely.
	if len(conn.Queues) == 1 && len(conn.Queues[0].Chatbots) == 0 {
		return r.assignQueue(ctx, conn, contact, ticket, &conn.Queues[0], ruleQueueAuto)
	}

	return r.presentMenu(ctx, conn, contact, ticket)
}

// presentMenu sends the enumerated queue menu, at most once per ticket
// burst (welcome lock) and bounded by the usage counter and cooldown window.
func (r *Router) presentMenu(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket) error {
	if !r.welcome.TryAcquire(ticket.ID) {
		// Another worker is dispatching this ticket's menu right now.
		return nil
	}
	defer r.welcome.Release(ticket.ID)

	if ticket.AmountUsedBotQueues >= conn.MaxUseBotQueues {
		return nil
	}
	if !r.cooldowns.Allow(cooldownKey(ticket.ID, "menu"), r.botWindow(conn)) {
		return nil
	}

	ticket.AmountUsedBotQueues++
	if err := r.updateRouting(ctx, ticket); err != nil {
		return err
	}
	if err := r.store.TouchTrackingMenu(ctx, ticket.ID, time.Now().UTC()); err != nil {
		return err
	}

	r.audit(ctx, ticket.ID, ruleQueueMenu, nil)

	options := make([]types.MenuOption, 0, len(conn.Queues))
	for _, q := range conn.Queues {
		options = append(options, types.MenuOption{ID: strconv.FormatInt(q.ID, 10), Label: q.Name})
	}
	title := conn.GreetingMessage
	if title == "" {
		title = "Choose an option:"
	}
	r.sendMenuDebounced(conn, contact, ticket.ID, types.Menu{
		Title:   title,
		Style:   conn.MenuStyle,
		Options: options,
	})
	return nil
}

// menuSelection interprets one inbound message as a menu command: a 1-based
// index, the back token, or an exit token. Anything else is a no-op and the
// ticket keeps awaiting a valid selection.
func (r *Router) menuSelection(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, body string) error {
	lower := strings.ToLower(body)

	switch lower {
	case constants.MenuExitToken, constants.MenuExitTokenAlt:
		r.audit(ctx, ticket.ID, ruleMenuExit, nil)
		return r.closeWithFarewell(ctx, conn, contact, ticket)
	case constants.MenuBackToken:
		// Re-arm the cooldown gate so the menu actually goes out again.
		r.cooldowns.Reset(cooldownKey(ticket.ID, "menu"))
		return r.presentMenu(ctx, conn, contact, ticket)
	}

	index, err := strconv.Atoi(body)
	if err != nil || index < 1 || index > len(conn.Queues) {
		return nil
	}

	queue := &conn.Queues[index-1]
	return r.assignQueue(ctx, conn, contact, ticket, queue, ruleQueueSelect)
}

// assignQueue binds the ticket to a queue and runs the queue's follow-up:
// greeting, immediate close, or chatbot sub-menu.
func (r *Router) assignQueue(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, queue *models.QueueConfig, rule string) error {
	queueID := queue.ID
	ticket.QueueID = &queueID
	if len(queue.Chatbots) > 0 {
		ticket.FlowCursor = chatbotMenuCursor
	} else {
		ticket.FlowCursor = ""
	}
	// Leaving the menu state gives the usage counter back.
	ticket.AmountUsedBotQueues = 0
	ticket.IsOutOfHour = false
	if err := r.updateRouting(ctx, ticket); err != nil {
		return err
	}
	if err := r.store.TouchTrackingChatbot(ctx, ticket.ID, &queueID, time.Now().UTC()); err != nil {
		return err
	}

	r.audit(ctx, ticket.ID, rule, &queueID)

	if len(queue.Chatbots) > 0 {
		options := make([]types.MenuOption, 0, len(queue.Chatbots))
		for _, cb := range queue.Chatbots {
			options = append(options, types.MenuOption{ID: strconv.FormatInt(cb.ID, 10), Label: cb.Name})
		}
		title := queue.GreetingMessage
		if title == "" {
			title = queue.Name
		}
		r.sendMenuDebounced(conn, contact, ticket.ID, types.Menu{
			Title:   title,
			Style:   conn.MenuStyle,
			Options: options,
		})
		return nil
	}

	if queue.GreetingMessage != "" {
		if r.cooldowns.Allow(cooldownKey(ticket.ID, "queue-greeting"), r.botWindow(conn)) {
			r.sendDebounced(conn, contact, ticket.ID, queue.GreetingMessage)
		}
	}
	if queue.CloseTicket {
		return r.closeWithFarewell(ctx, conn, contact, ticket)
	}
	return nil
}

// chatbotStep interprets a selection against the assigned queue's chatbot
// sub-menu. One level of recursion: an option with its own options presents
// them; deeper nesting is not supported.
func (r *Router) chatbotStep(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket, envelope *models.MessageEnvelope) error {
	if !envelope.HasText() {
		return nil
	}
	body := strings.TrimSpace(envelope.Body)
	lower := strings.ToLower(body)

	queue := conn.QueueByID(derefInt64(ticket.QueueID))
	if queue == nil || len(queue.Chatbots) == 0 {
		ticket.FlowCursor = ""
		return r.updateRouting(ctx, ticket)
	}

	switch lower {
	case constants.MenuExitToken, constants.MenuExitTokenAlt:
		r.audit(ctx, ticket.ID, ruleMenuExit, ticket.QueueID)
		return r.closeWithFarewell(ctx, conn, contact, ticket)
	case constants.MenuBackToken:
		// Back to the main queue menu.
		ticket.QueueID = nil
		ticket.FlowCursor = ""
		if err := r.updateRouting(ctx, ticket); err != nil {
			return err
		}
		r.cooldowns.Reset(cooldownKey(ticket.ID, "menu"))
		return r.presentMenu(ctx, conn, contact, ticket)
	}

	index, err := strconv.Atoi(body)
	if err != nil || index < 1 || index > len(queue.Chatbots) {
		return nil
	}

	option := &queue.Chatbots[index-1]
	ticket.FlowCursor = ""
	if err := r.updateRouting(ctx, ticket); err != nil {
		return err
	}

	r.audit(ctx, ticket.ID, ruleChatbotSelect, ticket.QueueID)

	if option.GreetingMessage != "" {
		r.sendNow(ctx, conn, contact, option.GreetingMessage)
	}
	if option.CloseTicket {
		return r.closeWithFarewell(ctx, conn, contact, ticket)
	}
	return nil
}

// HandleRatingReply intercepts a numeric reply to a just-closed, unrated
// ticket before the reopen path runs. Returns handled=true when the message
// was consumed as a rating.
func (r *Router) HandleRatingReply(ctx context.Context, conn *models.Connection, contact *models.Contact, envelope *models.MessageEnvelope) (bool, error) {
	if !conn.RatingEnabled || envelope.FromMe || !envelope.HasText() {
		return false, nil
	}

	score, err := strconv.Atoi(strings.TrimSpace(envelope.Body))
	if err != nil || score < 0 || score > 10 {
		return false, nil
	}

	latest, err := r.store.GetLatestTicket(ctx, contact.ID, envelope.ChannelID)
	if err != nil {
		return false, err
	}
	if latest == nil || latest.Status != models.TicketStatusClosed || latest.Rated {
		return false, nil
	}

	if err := r.store.SaveRating(ctx, latest.ID, score); err != nil {
		return false, err
	}
	latest.Rated = true

	r.audit(ctx, latest.ID, ruleRating, nil)
	r.logger.WithFields(logrus.Fields{
		"ticket_id": latest.ID,
		"score":     score,
	}).Info("Recorded ticket rating")

	if conn.FarewellMessage != "" {
		r.sendNow(ctx, conn, contact, conn.FarewellMessage)
	}
	return true, nil
}

// closeWithFarewell closes the ticket, optionally asks for a rating, and
// sends the farewell template.
func (r *Router) closeWithFarewell(ctx context.Context, conn *models.Connection, contact *models.Contact, ticket *models.Ticket) error {
	if err := r.tickets.Close(ctx, ticket); err != nil {
		return err
	}
	if conn.RatingEnabled && !ticket.Rated && conn.RatingMessage != "" {
		r.sendNow(ctx, conn, contact, conn.RatingMessage)
		return nil
	}
	if conn.FarewellMessage != "" {
		r.sendNow(ctx, conn, contact, conn.FarewellMessage)
	}
	return nil
}

// updateRouting persists routing-owned ticket fields, translating a lost
// write into the ticket-conflict sentinel.
func (r *Router) updateRouting(ctx context.Context, ticket *models.Ticket) error {
	ok, err := r.store.UpdateTicketRouting(ctx, ticket)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewTicketConflict(ticket.ID, nil)
	}
	return nil
}

func (r *Router) audit(ctx context.Context, ticketID int64, rule string, queueID *int64) {
	entry := &models.AuditLog{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		Rule:     rule,
		QueueID:  queueID,
	}
	if err := r.store.SaveAuditLog(ctx, entry); err != nil {
		r.logger.WithError(err).WithField("ticket_id", ticketID).Warn("Failed to write audit log")
	}
}

// sendNow pushes a message out immediately (AI replies, confirmations,
// farewells).
func (r *Router) sendNow(ctx context.Context, conn *models.Connection, contact *models.Contact, body string) {
	if _, err := r.sender.SendText(ctx, conn.ID, contact.RemoteID, body); err != nil {
		r.logger.WithError(err).WithField("contact_id", contact.ID).Error("Failed to send message")
	}
}

// sendDebounced coalesces bursts of the same templated notice into one send.
func (r *Router) sendDebounced(conn *models.Connection, contact *models.Contact, ticketID int64, body string) {
	connID, remoteID := conn.ID, contact.RemoteID
	r.debouncer.Schedule(debounceKey(ticketID), r.debounceWindow, func() {
		if _, err := r.sender.SendText(context.Background(), connID, remoteID, body); err != nil {
			r.logger.WithError(err).WithField("ticket_id", ticketID).Error("Failed to send debounced message")
		}
	})
}

func (r *Router) sendMenuDebounced(conn *models.Connection, contact *models.Contact, ticketID int64, menu types.Menu) {
	connID, remoteID := conn.ID, contact.RemoteID
	r.debouncer.Schedule(debounceKey(ticketID), r.debounceWindow, func() {
		if _, err := r.sender.SendMenu(context.Background(), connID, remoteID, menu); err != nil {
			r.logger.WithError(err).WithField("ticket_id", ticketID).Error("Failed to send menu")
		}
	})
}

// botWindow is the connection's cooldown window for automated notices.
func (r *Router) botWindow(conn *models.Connection) time.Duration {
	minutes := conn.TimeUseBotQueues
	if minutes <= 0 {
		minutes = constants.DefaultTimeUseBotQueues
	}
	return time.Duration(minutes) * time.Minute
}

func cooldownKey(ticketID int64, category string) string {
	return strconv.FormatInt(ticketID, 10) + ":" + category
}

func debounceKey(ticketID int64) string {
	return "ticket:" + strconv.FormatInt(ticketID, 10)
}

func isAffirmative(body string) bool {
	switch strings.ToLower(body) {
	case "1", "sim", "yes", "aceito", "accept":
		return true
	}
	return false
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
