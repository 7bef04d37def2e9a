/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/nanderstabel/identity/pkg/common/log"
)

const (
	messagesPath = "/api/v1/messages"

	defaultTimeout        = 30 * time.Second
	defaultMaxElapsedTime = 30 * time.Second
)

var logger = log.New("identity/iota/tangle")

// ErrNotFound is returned when the node does not know a message.
var ErrNotFound = errors.New("message not found")

// NodeClient is a Client talking to a node REST API.
type NodeClient struct {
	baseURL        string
	network        Network
	httpClient     *http.Client
	maxElapsedTime time.Duration
	metrics        *Metrics
}

// NodeClientOption configures a NodeClient.
type NodeClientOption func(*NodeClient)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) NodeClientOption {
	return func(n *NodeClient) {
		n.httpClient = c
	}
}

// WithNodeURL overrides the network's default node.
func WithNodeURL(u string) NodeClientOption {
	return func(n *NodeClient) {
		n.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithMaxElapsedTime bounds the time spent retrying a request. Zero disables retries.
func WithMaxElapsedTime(d time.Duration) NodeClientOption {
	return func(n *NodeClient) {
		n.maxElapsedTime = d
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *Metrics) NodeClientOption {
	return func(n *NodeClient) {
		n.metrics = m
	}
}

// NewNodeClient creates a client for network.
func NewNodeClient(network Network, opts ...NodeClientOption) (*NodeClient, error) {
	c := &NodeClient{
		baseURL:        network.DefaultNodeURL(),
		network:        network,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		maxElapsedTime: defaultMaxElapsedTime,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, fmt.Errorf("no node url for network %q", network.Name())
	}

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid node url: %w", err)
	}

	return c, nil
}

// Network returns the network the client publishes to.
func (c *NodeClient) Network() Network {
	return c.network
}

// PublishMessage attaches payload under index.
func (c *NodeClient) PublishMessage(ctx context.Context, index string, payload []byte) (MessageID, error) {
	body, err := json.Marshal(NodePayload{Index: EncodeIndex(index), Data: hex.EncodeToString(payload)})
	if err != nil {
		return NullMessageID, err
	}

	var resp NodeResponse[NodeMessage]

	err = c.do(ctx, "publish", http.MethodPost, c.baseURL+messagesPath, body, &resp)
	if err != nil {
		return NullMessageID, errors.Wrapf(err, "publish message on index %s", index)
	}

	id, err := ParseMessageID(resp.Data.MessageID)
	if err != nil {
		return NullMessageID, errors.Wrap(err, "node returned a bad message id")
	}

	logger.Debugf("published message %s on index %s", id, index)

	return id, nil
}

// ReadMessages returns every message published under index. Messages the node lists but cannot
// return are skipped.
func (c *NodeClient) ReadMessages(ctx context.Context, index string) ([]Message, error) {
	var ids NodeResponse[NodeMessageIDs]

	u := c.baseURL + messagesPath + "?index=" + url.QueryEscape(EncodeIndex(index))

	if err := c.do(ctx, "index", http.MethodGet, u, nil, &ids); err != nil {
		return nil, errors.Wrapf(err, "read message ids on index %s", index)
	}

	messages := make([]Message, 0, len(ids.Data.MessageIDs))

	for _, rawID := range ids.Data.MessageIDs {
		msg, err := c.readMessage(ctx, rawID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				logger.Warnf("message %s listed on index %s is missing", rawID, index)

				continue
			}

			return nil, err
		}

		messages = append(messages, *msg)
	}

	return messages, nil
}

func (c *NodeClient) readMessage(ctx context.Context, rawID string) (*Message, error) {
	id, err := ParseMessageID(rawID)
	if err != nil {
		return nil, errors.Wrap(err, "node listed a bad message id")
	}

	var resp NodeResponse[NodeMessage]

	if err := c.do(ctx, "message", http.MethodGet, c.baseURL+messagesPath+"/"+rawID, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "read message %s", rawID)
	}

	index, err := DecodeIndex(resp.Data.Payload.Index)
	if err != nil {
		return nil, errors.Wrapf(err, "message %s has a bad index", rawID)
	}

	payload, err := hex.DecodeString(resp.Data.Payload.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "message %s has bad data", rawID)
	}

	return &Message{ID: id, Index: index, Payload: payload}, nil
}

func (c *NodeClient) do(ctx context.Context, op, method, u string, body []byte, out interface{}) error {
	start := time.Now()

	operation := func() error {
		return c.roundTrip(ctx, method, u, body, out)
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}

	if c.maxElapsedTime > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = c.maxElapsedTime
		policy = exp
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))

	c.metrics.observe(op, err, time.Since(start))

	return err
}

func (c *NodeClient) roundTrip(ctx context.Context, method, u string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return backoff.Permanent(err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer closeResponseBody(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(ErrNotFound)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("node returned %d: %s", resp.StatusCode, nodeErrorMessage(respBody))
	case resp.StatusCode >= http.StatusBadRequest:
		return backoff.Permanent(fmt.Errorf("node returned %d: %s", resp.StatusCode, nodeErrorMessage(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return backoff.Permanent(errors.Wrap(err, "decode node response"))
	}

	return nil
}

func nodeErrorMessage(body []byte) string {
	var nodeErr NodeError
	if err := json.Unmarshal(body, &nodeErr); err == nil && nodeErr.Error.Message != "" {
		return nodeErr.Error.Message
	}

	return string(body)
}

func closeResponseBody(respBody io.Closer) {
	e := respBody.Close()
	if e != nil {
		logger.Errorf("Failed to close response body: %v", e)
	}
}
