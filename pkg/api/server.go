// SMS Gateway - HTTP facade
// Serves REST endpoints for sending SMS, receiving messages, and managing
// conversation history, plus a WebSocket stream of live gateway events.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smartkrishi/smsgate/pkg/app"
	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/config"
	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
	"github.com/smartkrishi/smsgate/pkg/logger"
)

// Server is the HTTP API server for the gateway facade.
type Server struct {
	config      *config.Config
	container   *app.Container
	wsHub       *WSHub
	eventBridge *EventBridge
	startTime   time.Time
	server      *http.Server
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, container *app.Container) *Server {
	// --- Secure-by-default: auto-generate API key if none is configured ---
	// Random key per session, printed once at startup. Set gateway.api_key
	// or SMSGATE_API_KEY for a persistent key.
	if cfg.Gateway.APIKey == "" {
		raw := make([]byte, 24)
		if _, err := rand.Read(raw); err == nil {
			cfg.Gateway.APIKey = hex.EncodeToString(raw)
			fmt.Println()
			fmt.Println("╔══════════════════════════════════════════════════════╗")
			fmt.Println("║           SMSGATE API KEY (session token)            ║")
			fmt.Printf( "║  %-52s  ║\n", cfg.Gateway.APIKey)
			fmt.Println("║  Set gateway.api_key in the config file to make      ║")
			fmt.Println("║  this permanent. Rotate it any time.                 ║")
			fmt.Println("╚══════════════════════════════════════════════════════╝")
			fmt.Println()
		}
	}

	s := &Server{
		config:    cfg,
		container: container,
		startTime: time.Now(),
	}
	s.wsHub = NewWSHub(s)
	s.eventBridge = NewEventBridge(container.EventBus, s.wsHub)
	return s
}

// Start begins listening on the configured host:port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)

	// Message flow
	mux.HandleFunc("/api/send", s.handleSend)
	mux.HandleFunc("/api/receive", s.handleReceive)

	// Registration and history
	mux.HandleFunc("/api/register/{phone}", s.handleRegister)
	mux.HandleFunc("/api/history/{phone}", s.handleHistory)
	mux.HandleFunc("/api/numbers", s.handleNumbers)

	// Direct AI chat (testing/API use)
	mux.HandleFunc("/api/chat/{phone}", s.handleChat)

	// WebSocket for live events
	mux.HandleFunc("/api/ws", s.wsHub.HandleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.config.Gateway.Host, s.config.Gateway.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      corsMiddleware(authMiddleware(s.config.Gateway.APIKey, mux)),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.InfoCF("api", "Gateway API server starting", map[string]interface{}{
		"addr": addr,
	})

	go s.wsHub.Run(ctx)
	go s.eventBridge.Run(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("api", "Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// --- Middleware ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin checks if the origin is a trusted localhost address.
func isAllowedOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "http://127.0.0.1", "https://localhost", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// --- Handlers ---

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"message": "SMS gateway is running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.container.Status(r.Context()))
}

// handleSend queues an arbitrary outbound SMS, segmenting it first.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	var req struct {
		PhoneNumber string `json:"phone_number"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PhoneNumber == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone_number and message required"})
		return
	}

	n := s.container.Dispatch.EnqueueText(r.Context(), domain.Recipient(req.PhoneNumber), req.Message)

	logger.InfoCF("api", "SMS queued", map[string]interface{}{
		"recipient": req.PhoneNumber,
		"segments":  n,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("SMS queued for sending in %d chunk(s)", n),
	})
}

// handleReceive long-polls for the next freshly ingested inbound message.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.Relay.ReceiveTimeout)
	defer cancel()

	item, ok := s.container.Inbox.Receive(ctx)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_new_messages"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleRegister registers a phone number for auto-replies and sends the
// confirmation SMS when the registration is new.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	phone := domain.Recipient(r.PathValue("phone"))
	created, err := s.container.ConversationSvc.Register(phone)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "info",
			"message": fmt.Sprintf("Phone number %s is already registered", phone),
		})
		return
	}

	s.container.Dispatch.EnqueueText(r.Context(), phone, app.MsgRegistered)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Phone number %s registered successfully", phone),
	})
}

// handleHistory serves and clears per-recipient conversation history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	phone := domain.Recipient(r.PathValue("phone"))

	switch r.Method {
	case http.MethodGet:
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		turns, err := s.container.ConversationSvc.History(phone, limit)
		if err != nil {
			// An unregistered number has an empty history, not an error.
			turns = []convdomain.Turn{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"phone_number": phone.String(),
			"messages":     turns,
			"total_count":  s.container.ConversationSvc.TurnTotal(phone),
		})

	case http.MethodDelete:
		if _, err := s.container.ConversationSvc.Clear(phone); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		s.container.Dispatch.EnqueueText(r.Context(), phone, app.MsgHistoryCleared)
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": fmt.Sprintf("History cleared for %s", phone),
		})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET or DELETE required"})
	}
}

func (s *Server) handleNumbers(w http.ResponseWriter, r *http.Request) {
	numbers, err := s.container.ConversationSvc.Recipients()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, numbers)
}

// handleChat injects a message into the conversational pipeline as if it
// arrived over SMS, registering the number first when needed.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	phone := domain.Recipient(r.PathValue("phone"))

	message := r.URL.Query().Get("message")
	if message == "" {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			message = req.Message
		}
	}
	if strings.TrimSpace(message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message required"})
		return
	}

	if _, err := s.container.ConversationSvc.Register(phone); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.container.Dispatch.EnqueueText(r.Context(), phone, app.MsgThinking)
	s.container.ReplyQueue.Enqueue(r.Context(), bus.InboundJob{Recipient: phone, Text: strings.TrimSpace(message)})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Message sent for AI processing",
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
