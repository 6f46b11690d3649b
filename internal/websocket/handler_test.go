package websocket

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdash/internal/config"
	"eventdash/internal/shared/testutil"
	"eventdash/pkg/contracts/domain"
)

func newTestServer(t *testing.T, origins []string) (*Handler, *httptest.Server) {
	t.Helper()
	// server goroutines can outlive the test, so nothing is echoed to t
	logger := slog.New(testutil.NewBufferedSlogHandler(nil))
	h := NewHandler(sampleService(), config.Default().WebSocket, origins, nil, logger)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Shutdown()
		srv.Close()
	})
	return h, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHandler_Session(t *testing.T) {
	h, srv := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readFrame(t, conn)
	assert.Equal(t, TypeOptions, hello.Type)
	assert.NotEmpty(t, hello.SessionID)
	assert.Equal(t, 1, h.Active())

	require.NoError(t, conn.WriteJSON(map[string]any{"org_unit": "ClinicA", "month": nil}))
	reply := readFrame(t, conn)
	assert.Equal(t, TypeDashboard, reply.Type)
	assert.Equal(t, hello.SessionID, reply.SessionID)
	assert.Contains(t, string(reply.Data), `"matched_records":2`)

	require.NoError(t, conn.WriteJSON(map[string]any{"age_group": string(domain.AgeGroupSenior)}))
	reply = readFrame(t, conn)
	assert.Equal(t, TypeDashboard, reply.Type)
	assert.Equal(t, int64(3), reply.Sequence)
	assert.Contains(t, string(reply.Data), `"matched_records":1`)
}

func TestHandler_ShutdownClosesSessions(t *testing.T) {
	h, srv := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn)

	h.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Eventually(t, func() bool { return h.Active() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandler_CheckOrigin(t *testing.T) {
	_, srv := newTestServer(t, []string{"http://dashboard.example"})

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "allowed", origin: "http://dashboard.example", ok: true},
		{name: "foreign", origin: "http://evil.example", ok: false},
		{name: "no origin", origin: "", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestCheckOrigin_SameHost(t *testing.T) {
	check := checkOrigin(nil)

	r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://other:8080")
	assert.False(t, check(r))

	assert.True(t, checkOrigin([]string{"*"})(r))
}
