/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tangle

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// fakeNode serves the node API from a MemTangle.
func fakeNode(t *testing.T, ledger *MemTangle, failures *int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures != nil && atomic.AddInt32(failures, -1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == messagesPath:
			var p NodePayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))

			index, err := DecodeIndex(p.Index)
			require.NoError(t, err)

			data, err := hex.DecodeString(p.Data)
			require.NoError(t, err)

			id, err := ledger.PublishMessage(r.Context(), index, data)
			require.NoError(t, err)

			require.NoError(t, json.NewEncoder(w).Encode(NodeResponse[NodeMessage]{
				Data: NodeMessage{MessageID: id.String()},
			}))
		case r.Method == http.MethodGet && r.URL.Path == messagesPath:
			index, err := DecodeIndex(r.URL.Query().Get("index"))
			require.NoError(t, err)

			var ids []string
			for _, id := range ledger.MessageIDs(index) {
				ids = append(ids, id.String())
			}

			require.NoError(t, json.NewEncoder(w).Encode(NodeResponse[NodeMessageIDs]{
				Data: NodeMessageIDs{Index: r.URL.Query().Get("index"), Count: len(ids), MessageIDs: ids},
			}))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, messagesPath+"/"):
			id, err := ParseMessageID(strings.TrimPrefix(r.URL.Path, messagesPath+"/"))
			require.NoError(t, err)

			msg, ok := ledger.Message(id)
			if !ok {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			require.NoError(t, json.NewEncoder(w).Encode(NodeResponse[NodeMessage]{
				Data: NodeMessage{MessageID: id.String(), Payload: NodePayload{
					Index: EncodeIndex(msg.Index), Data: hex.EncodeToString(msg.Payload),
				}},
			}))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"400","message":"bad request"}}`))
		}
	}))
}

func TestNodeClient(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemTangle()

	srv := fakeNode(t, ledger, nil)
	defer srv.Close()

	reg := prometheus.NewRegistry()

	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	client, err := NewNodeClient(Devnet, WithNodeURL(srv.URL+"/"), WithMetrics(metrics))
	require.NoError(t, err)
	require.Equal(t, Devnet, client.Network())

	id, err := client.PublishMessage(ctx, "did-tag", []byte{1, 2, 3})
	require.NoError(t, err)

	msgs, err := client.ReadMessages(ctx, "did-tag")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, id, msgs[0].ID)
	require.Equal(t, "did-tag", msgs[0].Index)
	require.Equal(t, []byte{1, 2, 3}, msgs[0].Payload)

	msgs, err = client.ReadMessages(ctx, "empty")
	require.NoError(t, err)
	require.Empty(t, msgs)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.requests.WithLabelValues("publish", "success")))
}

func TestNodeClient_Retries(t *testing.T) {
	ledger := NewMemTangle()
	failures := int32(2)

	srv := fakeNode(t, ledger, &failures)
	defer srv.Close()

	client, err := NewNodeClient(Devnet, WithNodeURL(srv.URL), WithMaxElapsedTime(10*time.Second))
	require.NoError(t, err)

	_, err = client.PublishMessage(context.Background(), "idx", []byte("x"))
	require.NoError(t, err)
	require.Len(t, ledger.MessageIDs("idx"), 1)

	t.Run("no retries", func(t *testing.T) {
		failures := int32(1)

		srv := fakeNode(t, ledger, &failures)
		defer srv.Close()

		client, err := NewNodeClient(Devnet, WithNodeURL(srv.URL), WithMaxElapsedTime(0))
		require.NoError(t, err)

		_, err = client.PublishMessage(context.Background(), "idx", []byte("x"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "503")
	})
}

func TestNewNodeClient_NoURL(t *testing.T) {
	custom, err := NetworkFromName("priv")
	require.NoError(t, err)

	_, err = NewNodeClient(custom)
	require.Error(t, err)
}
