package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ticketflow/internal/constants"
	"ticketflow/internal/models"
	"ticketflow/internal/service"
	"ticketflow/internal/tracing"
	"ticketflow/pkg/realtime"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const signatureHeader = "X-Webhook-Signature"

type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	cfg      *models.Config
	pipeline *service.Pipeline
	receipts *service.ReceiptService
	hub      *realtime.Hub
	server   *http.Server
}

func NewServer(cfg *models.Config, pipeline *service.Pipeline, receipts *service.ReceiptService, hub *realtime.Hub, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		cfg:      cfg,
		pipeline: pipeline,
		receipts: receipts,
		hub:      hub,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	webhooks := s.router.PathPrefix("/webhook").Subrouter()
	webhooks.HandleFunc("/messages", s.handleMessageWebhook()).Methods(http.MethodPost)
	webhooks.HandleFunc("/status", s.handleStatusWebhook()).Methods(http.MethodPost)
	webhooks.HandleFunc("/receipts", s.handleReceiptWebhook()).Methods(http.MethodPost)

	s.router.Handle("/ws", s.hub).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port <= 0 {
		port = constants.DefaultServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Debug("Failed to write health response")
		}
	}
}

func (s *Server) handleMessageWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.Server.WebhookSecret, signatureHeader)
		if err != nil {
			s.logger.WithError(err).Warn("Rejected message webhook")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var event models.TransportMessageEvent
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		ctx, span := tracing.StartSpan(r.Context(), "webhook.message",
			attribute.String("message.id", event.ID),
			attribute.String("channel.id", event.ChannelID))
		defer span.End()

		if err := s.pipeline.IngestMessage(ctx, &event); err != nil {
			tracing.RecordError(ctx, err)
			s.logger.WithError(err).WithField("message_id", event.ID).
				Error("Failed to ingest message event")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleStatusWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.Server.WebhookSecret, signatureHeader)
		if err != nil {
			s.logger.WithError(err).Warn("Rejected status webhook")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var event models.TransportStatusEvent
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		// Resolution failures are expected for messages this engine never
		// persisted; they are not server errors.
		if _, err := s.receipts.ApplyStatusEvent(r.Context(), &event); err != nil {
			s.logger.WithError(err).WithField("message_id", event.MessageID).
				Debug("Status event not applied")
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleReceiptWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.Server.WebhookSecret, signatureHeader)
		if err != nil {
			s.logger.WithError(err).Warn("Rejected receipt webhook")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var event models.TransportReceiptEvent
		if err := json.Unmarshal(body, &event); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		if _, err := s.receipts.ApplyReceiptEvent(r.Context(), &event); err != nil {
			s.logger.WithError(err).WithField("message_id", event.MessageID).
				Debug("Receipt event not applied")
		}

		w.WriteHeader(http.StatusOK)
	}
}
