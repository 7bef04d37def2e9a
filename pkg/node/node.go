/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package node serves a development Tangle node: the indexation subset of the node REST API
// over a MemTangle, plus a websocket stream of the messages published under an index.
package node

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/nanderstabel/identity/pkg/common/log"
	"github.com/nanderstabel/identity/pkg/iota/tangle"
)

var logger = log.New("identity/node")

// API paths.
const (
	MessagesPath = "/api/v1/messages"
	MessagePath  = "/api/v1/messages/{id}"
	StreamPath   = "/api/v1/stream"
	InfoPath     = "/api/v1/info"
	HealthPath   = "/health"

	streamBuffer = 64
)

// Info is the node description.
type Info struct {
	Name    string `json:"name"`
	Network string `json:"networkId"`
}

// Server is the development node.
type Server struct {
	tangle *tangle.MemTangle
	router *mux.Router
}

// New returns a node serving t.
func New(t *tangle.MemTangle) *Server {
	s := &Server{tangle: t, router: mux.NewRouter()}

	s.router.HandleFunc(MessagesPath, s.publish).Methods(http.MethodPost)
	s.router.HandleFunc(MessagesPath, s.find).Methods(http.MethodGet).Queries("index", "{index}")
	s.router.HandleFunc(MessagePath, s.message).Methods(http.MethodGet)
	s.router.HandleFunc(StreamPath, s.stream).Methods(http.MethodGet).Queries("index", "{index}")
	s.router.HandleFunc(InfoPath, s.info).Methods(http.MethodGet)
	s.router.HandleFunc(HealthPath, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return s
}

// Handler returns the node API wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	return cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With"},
		},
	).Handler(s.router)
}

func sendError(rw http.ResponseWriter, statusCode int, code string, err error) {
	var body tangle.NodeError

	body.Error.Code = code
	body.Error.Message = err.Error()

	send(rw, statusCode, body)
}

func send(rw http.ResponseWriter, statusCode int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logger.Errorf("Unable to send response, %s", err)
	}
}

func nodeMessage(msg tangle.Message) tangle.NodeMessage {
	return tangle.NodeMessage{
		MessageID: msg.ID.String(),
		Payload: tangle.NodePayload{
			Index: tangle.EncodeIndex(msg.Index),
			Data:  hex.EncodeToString(msg.Payload),
		},
	}
}

func (s *Server) publish(rw http.ResponseWriter, req *http.Request) {
	var payload tangle.NodePayload

	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		sendError(rw, http.StatusBadRequest, "invalid_data", fmt.Errorf("invalid message: %w", err))

		return
	}

	index, err := tangle.DecodeIndex(payload.Index)
	if err != nil || index == "" {
		sendError(rw, http.StatusBadRequest, "invalid_data", errors.New("invalid index"))

		return
	}

	data, err := hex.DecodeString(payload.Data)
	if err != nil {
		sendError(rw, http.StatusBadRequest, "invalid_data", errors.New("invalid data"))

		return
	}

	id, err := s.tangle.PublishMessage(req.Context(), index, data)
	if err != nil {
		sendError(rw, http.StatusInternalServerError, "internal_error", err)

		return
	}

	logger.Debugf("attached message %s on index %s", id, index)

	msg, _ := s.tangle.Message(id)

	send(rw, http.StatusCreated, tangle.NodeResponse[tangle.NodeMessage]{Data: nodeMessage(msg)})
}

func (s *Server) find(rw http.ResponseWriter, req *http.Request) {
	encoded := mux.Vars(req)["index"]

	index, err := tangle.DecodeIndex(encoded)
	if err != nil {
		sendError(rw, http.StatusBadRequest, "invalid_data", errors.New("invalid index"))

		return
	}

	ids := s.tangle.MessageIDs(index)

	out := tangle.NodeMessageIDs{Index: encoded, Count: len(ids), MessageIDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		out.MessageIDs = append(out.MessageIDs, id.String())
	}

	send(rw, http.StatusOK, tangle.NodeResponse[tangle.NodeMessageIDs]{Data: out})
}

func (s *Server) message(rw http.ResponseWriter, req *http.Request) {
	id, err := tangle.ParseMessageID(mux.Vars(req)["id"])
	if err != nil {
		sendError(rw, http.StatusBadRequest, "invalid_data", err)

		return
	}

	msg, ok := s.tangle.Message(id)
	if !ok {
		sendError(rw, http.StatusNotFound, "not_found", fmt.Errorf("message %s not found", id))

		return
	}

	send(rw, http.StatusOK, tangle.NodeResponse[tangle.NodeMessage]{Data: nodeMessage(msg)})
}

func (s *Server) info(rw http.ResponseWriter, _ *http.Request) {
	send(rw, http.StatusOK, tangle.NodeResponse[Info]{Data: Info{
		Name:    "identity-dev-node",
		Network: s.tangle.Network().Name(),
	}})
}

// stream sends the messages published under the index, from the time of the request on, until
// the client goes away.
func (s *Server) stream(rw http.ResponseWriter, req *http.Request) {
	index, err := tangle.DecodeIndex(mux.Vars(req)["index"])
	if err != nil {
		sendError(rw, http.StatusBadRequest, "invalid_data", errors.New("invalid index"))

		return
	}

	// subscribed before the upgrade: every message published after the handshake is streamed
	messages, cancel := s.tangle.Subscribe(index, streamBuffer)
	defer cancel()

	conn, err := websocket.Accept(rw, req, nil)
	if err != nil {
		logger.Errorf("failed to upgrade the connection: %v", err)

		return
	}

	defer conn.Close(websocket.StatusNormalClosure, "stream closed") //nolint:errcheck

	ctx := conn.CloseRead(req.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			if err := wsjson.Write(ctx, conn, nodeMessage(msg)); err != nil {
				logger.Debugf("stream of index %s closed: %v", index, err)

				return
			}
		}
	}
}
