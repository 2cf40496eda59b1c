package models

import "time"

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

// Config is the full application configuration, loaded from JSON with
// environment overrides.
type Config struct {
	LogLevel      string           `json:"logLevel"`
	RetentionDays int              `json:"retentionDays"`
	Server        ServerConfig     `json:"server"`
	Database      DatabaseConfig   `json:"database"`
	Transport     TransportConfig  `json:"transport"`
	Broker        BrokerConfig     `json:"broker"`
	AI            AIProviderConfig `json:"ai"`
	Flow          FlowEngineConfig `json:"flow"`
	Tracing       TracingConfig    `json:"tracing"`
	Retry         RetryConfig      `json:"retry"`
	Connections   []Connection     `json:"connections"`
}

type ServerConfig struct {
	Port                 int    `json:"port"`
	WebhookSecret        string `json:"webhookSecret"`
	CleanupIntervalHours int    `json:"cleanupIntervalHours"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// TransportConfig points at the messaging-transport gateway this engine sends
// outbound messages through. The gateway itself (pairing, reconnect, media)
// is an external collaborator.
type TransportConfig struct {
	APIBaseURL string `json:"apiBaseUrl"`
	APIKey     string `json:"apiKey"`
	TimeoutSec int    `json:"timeoutSec"`
}

// BrokerConfig configures the AMQP queue the background receipt worker
// consumes from. Empty URL disables the worker.
type BrokerConfig struct {
	URL   string `json:"url"`
	Queue string `json:"queue"`
}

type AIProviderConfig struct {
	Provider   string `json:"provider"`
	BaseURL    string `json:"baseUrl"`
	APIKey     string `json:"apiKey"`
	Model      string `json:"model"`
	TimeoutSec int    `json:"timeoutSec"`
	MaxHistory int    `json:"maxHistory"`
}

type FlowEngineConfig struct {
	BaseURL    string `json:"baseUrl"`
	APIKey     string `json:"apiKey"`
	TimeoutSec int    `json:"timeoutSec"`
}

type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	ServiceName  string  `json:"serviceName"`
	Environment  string  `json:"environment"`
	OTLPEndpoint string  `json:"otlpEndpoint"`
	SampleRate   float64 `json:"sampleRate"`
	UseStdout    bool    `json:"useStdout"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// Connection describes one transport channel and everything the routing
// engine needs to decide on its tickets: queues, automation bindings,
// business hours and message templates.
type Connection struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	GreetingMessage   string        `json:"greetingMessage"`
	FarewellMessage   string        `json:"farewellMessage"`
	OutOfHoursMessage string        `json:"outOfHoursMessage"`
	RatingMessage     string        `json:"ratingMessage"`
	ReactivationToken string        `json:"reactivationToken"`
	MenuStyle         string        `json:"menuStyle"` // "text", "list" or "button"
	MaxUseBotQueues   int           `json:"maxUseBotQueues"`
	TimeUseBotQueues  int           `json:"timeUseBotQueues"` // minutes
	GroupsAsTickets   bool          `json:"groupsAsTickets"`
	RatingEnabled     bool          `json:"ratingEnabled"`
	LGPD              *LGPDConfig   `json:"lgpd,omitempty"`
	Schedule          *Schedule     `json:"schedule,omitempty"`
	AIBinding         *AIBinding    `json:"aiBinding,omitempty"`
	FlowBinding       *FlowBinding  `json:"flowBinding,omitempty"`
	Queues            []QueueConfig `json:"queues"`
}

// QueueByID returns the queue with the given id, or nil.
func (c *Connection) QueueByID(id int64) *QueueConfig {
	for i := range c.Queues {
		if c.Queues[i].ID == id {
			return &c.Queues[i]
		}
	}
	return nil
}

type LGPDConfig struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// Schedule is the weekly business-hours table. A connection with no schedule
// is always in hours.
type Schedule struct {
	Weekdays  []time.Weekday `json:"weekdays"`
	StartHour string         `json:"startHour"` // "08:00"
	EndHour   string         `json:"endHour"`   // "18:00"
}

// Contains reports whether t falls on a scheduled weekday between StartHour
// and EndHour. Malformed hour strings make the window open-ended on that
// side.
func (s *Schedule) Contains(t time.Time) bool {
	dayOK := len(s.Weekdays) == 0
	for _, wd := range s.Weekdays {
		if wd == t.Weekday() {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	if start, ok := parseClock(s.StartHour); ok && minutes < start {
		return false
	}
	if end, ok := parseClock(s.EndHour); ok && minutes >= end {
		return false
	}
	return true
}

func parseClock(s string) (int, bool) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}

type AIBinding struct {
	IntegrationID int64  `json:"integrationId"`
	SystemPrompt  string `json:"systemPrompt"`
	MaxHistory    int    `json:"maxHistory"`
}

type FlowBinding struct {
	IntegrationID int64  `json:"integrationId"`
	FlowID        string `json:"flowId"`
	EntryNodeID   string `json:"entryNodeId"`
}

// QueueConfig is a named routing bucket, optionally with chatbot sub-menus.
type QueueConfig struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	GreetingMessage string          `json:"greetingMessage"`
	CloseTicket     bool            `json:"closeTicket"`
	Chatbots        []ChatbotOption `json:"chatbots,omitempty"`
}

// ChatbotOption is one entry of a queue's sub-menu. Options one level deep
// are presented when the entry is selected.
type ChatbotOption struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	GreetingMessage string          `json:"greetingMessage"`
	CloseTicket     bool            `json:"closeTicket"`
	Options         []ChatbotOption `json:"options,omitempty"`
}
