package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Start creates an HTTP server, registers routes, and begins serving.
// It returns immediately after starting the server in a background goroutine.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}

	go s.http.ListenAndServe()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Routes returns the provider's HTTP mux, usable directly in tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /.well-known/provider-card.json", s.handleProviderCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)

	return mux
}

// handleProviderCard serves the provider card as JSON at the well-known
// endpoint.
func (s *Server) handleProviderCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC processes incoming JSON-RPC 2.0 requests and dispatches them
// to the appropriate handler method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}

	ctx := r.Context()

	// content/stream answers with an SSE body instead of a JSON envelope.
	if req.Method == MethodStreamGenerate {
		s.dispatchStreamGenerate(ctx, w, &req)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch req.Method {
	case MethodGenerate:
		s.dispatchGenerate(ctx, w, &req)
	case MethodGetJob:
		s.dispatchGetJob(ctx, w, &req)
	case MethodListJobs:
		s.dispatchListJobs(ctx, w, &req)
	case MethodCancelJob:
		s.dispatchCancelJob(ctx, w, &req)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// dispatchGenerate unmarshals params and calls HandleGenerate.
func (s *Server) dispatchGenerate(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params GenerateRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleGenerate(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// dispatchGetJob unmarshals params and calls HandleGetJob.
func (s *Server) dispatchGetJob(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params GetJobRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleGetJob(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// dispatchListJobs unmarshals params and calls HandleListJobs.
func (s *Server) dispatchListJobs(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params ListJobsRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleListJobs(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// dispatchCancelJob unmarshals params and calls HandleCancelJob.
func (s *Server) dispatchCancelJob(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	var params CancelJobRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := s.handler.HandleCancelJob(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// dispatchStreamGenerate runs a streaming generation over SSE when the
// handler supports it.
func (s *Server) dispatchStreamGenerate(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	streamer, ok := s.handler.(Streamer)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, "Streaming not supported")
		return
	}

	var params GenerateRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	events, err := streamer.HandleStreamGenerate(ctx, params)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSONRPCError(w, req.ID, errCodeFor(err), err.Error())
		return
	}

	sw := NewSSEWriter(w)
	sw.Init()

	for ev := range events {
		if ev.Err != nil {
			// Stream-level failures end the connection; the client sees EOF.
			return
		}
		if err := sw.WriteEvent(ev); err != nil {
			return
		}
	}
}

// errCodeFor maps handler errors to protocol error codes.
func errCodeFor(err error) int {
	switch {
	case IsNotFound(err):
		return ErrCodeJobNotFound
	case IsNotCancelable(err):
		return ErrCodeJobNotCancelable
	case IsUnsupportedStep(err):
		return ErrCodeUnsupportedStep
	default:
		return ErrCodeInternal
	}
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}

	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	}

	json.NewEncoder(w).Encode(resp)
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(resp)
}
