/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Error codes of remote failures.
const (
	CodeUnknownRequest  = "unknown_request"
	CodeDeserialization = "deserialization"
	CodeHandler         = "handler"
	CodeInternal        = "internal"
)

// request is the websocket envelope of an invocation.
type request struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response answers the request with the same id.
type response struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a failure reported by the remote actor.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// Is maps remote error codes to the local sentinel errors.
func (e *RemoteError) Is(target error) bool {
	switch e.Code {
	case CodeUnknownRequest:
		return target == ErrUnknownRequest
	case CodeDeserialization:
		return target == ErrDeserialization
	case CodeHandler:
		return target == ErrHandler
	}

	return false
}

func remoteError(err error) *RemoteError {
	code := CodeInternal

	switch {
	case errors.Is(err, ErrUnknownRequest):
		code = CodeUnknownRequest
	case errors.Is(err, ErrDeserialization):
		code = CodeDeserialization
	case errors.Is(err, ErrHandler):
		code = CodeHandler
	}

	return &RemoteError{Code: code, Message: err.Error()}
}

// ServeHTTP accepts a websocket connection and answers its requests until it is closed.
func (a *Actor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Errorf("failed to upgrade the connection: %v", err)

		return
	}

	defer closeConn(conn)

	ctx := r.Context()

	for {
		var req request

		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logger.Warnf("failed to read request: %v", err)
			}

			return
		}

		resp := response{ID: req.ID}

		payload, err := a.Invoke(ctx, req.Name, req.Payload)
		if err != nil {
			logger.Debugf("request %s (%s) failed: %v", req.Name, req.ID, err)

			resp.Error = remoteError(err)
		} else {
			resp.Payload = payload
		}

		if err := wsjson.Write(ctx, conn, resp); err != nil {
			logger.Errorf("failed to write response: %v", err)

			return
		}
	}
}

// SendRequest invokes the handler name of the actor served at url with req and decodes its
// response into resp.
func (a *Actor) SendRequest(ctx context.Context, url, name string, req, resp interface{}) error {
	conn, _, err := websocket.Dial(ctx, url, nil) //nolint:bodyclose
	if err != nil {
		return fmt.Errorf("dial actor %s: %w", url, err)
	}

	defer closeConn(conn)

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", name, err)
	}

	id := uuid.NewString()

	if err := wsjson.Write(ctx, conn, request{ID: id, Name: name, Payload: payload}); err != nil {
		return fmt.Errorf("send %s request: %w", name, err)
	}

	var out response

	if err := wsjson.Read(ctx, conn, &out); err != nil {
		return fmt.Errorf("read %s response: %w", name, err)
	}

	if out.ID != id {
		return fmt.Errorf("%w: response id %s does not match request %s", ErrDeserialization, out.ID, id)
	}

	if out.Error != nil {
		return out.Error
	}

	if resp == nil {
		return nil
	}

	if err := json.Unmarshal(out.Payload, resp); err != nil {
		return fmt.Errorf("%w: response %T: %s", ErrDeserialization, resp, err.Error())
	}

	return nil
}

func closeConn(conn *websocket.Conn) {
	if err := conn.Close(websocket.StatusNormalClosure,
		"closing the connection"); err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Debugf("failed to close connection: %v", err)
	}
}
