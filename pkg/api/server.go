package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datsfilipe/datschain/pkg/node"
)

// maxBodyBytes caps the /api/connect request body.
const maxBodyBytes = 16 * 1024

// Server handles HTTP requests from wallet clients.
type Server struct {
	node       *node.Node
	logger     *zap.Logger
	httpServer *http.Server
}

// connectRequest is the wallet admission body.
type connectRequest struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// connectResponse reports the admission outcome. TxHash carries the hex
// content key of the committed entry on success.
type connectResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	TxHash  *string `json:"tx_hash"`
}

// NewServer creates the admission server bound to addr.
func NewServer(n *node.Node, addr string, logger *zap.Logger) *Server {
	s := &Server{
		node:   n,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/connect", s.handleConnect)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

// Start serves in the background. The bind failure surfaces on the returned
// channel; the caller treats it as fatal.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

// Stop stops the HTTP server.
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

// handleConnect admits a wallet: commit under accounts, persist, broadcast.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeResponse(w, status, &connectResponse{
			Success: false,
			Message: "Request body deserialize error: " + err.Error(),
		})
		return
	}

	key, address, err := s.node.CreateWallet(r.Context(), []byte(req.PrivateKey), []byte(req.PublicKey))
	if err != nil {
		s.logger.Sugar().Warnw("Wallet admission failed", "error", err)
		s.writeResponse(w, http.StatusInternalServerError, &connectResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	txHash := hex.EncodeToString(key[:])
	s.writeResponse(w, http.StatusOK, &connectResponse{
		Success: true,
		Message: "address: " + address,
		TxHash:  &txHash,
	})
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, resp *connectResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Sugar().Warnw("Failed to encode response", "error", err)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
