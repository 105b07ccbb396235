package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

// Opcodes mirror internal/ports/nakama/constants.go.
const (
	OpStartGame   int64 = 7
	OpGameState   int64 = 101
	OpYourTurn    int64 = 102
	OpAssignment  int64 = 106
	OpHostError   int64 = 109
	OpConfirm     int64 = 1
	OpTurnResult  int64 = 104
	OpTokenWindow int64 = 103
)

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	Socket  *nakama.Socket
	UserID  string

	frames chan *rtapi.MatchData
}

func NewTestClient(t *testing.T) *TestClient {
	client := nakama.NewClient(ServerKey, Host, Port, false)

	deviceID := fmt.Sprintf("jhitster_device_%d", time.Now().UnixNano())
	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	tc := &TestClient{
		Client:  client,
		Session: session,
		UserID:  session.UserId,
		frames:  make(chan *rtapi.MatchData, 128),
	}
	socket := client.NewSocket()
	socket.OnMatchData = func(data *rtapi.MatchData) {
		select {
		case tc.frames <- data:
		default:
		}
	}
	if err := socket.Connect(context.Background(), session, true); err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}
	tc.Socket = socket
	return tc
}

func (tc *TestClient) Close() {
	if tc.Socket != nil {
		tc.Socket.Close()
	}
}

// QuickMatch calls the quick_match RPC and joins the returned match.
func (tc *TestClient) QuickMatch(t *testing.T, packs []string) string {
	payload, _ := json.Marshal(map[string]interface{}{"packs": packs})
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, "quick_match", string(payload))
	if err != nil {
		t.Fatalf("RPC quick_match failed: %v", err)
	}

	var res struct {
		MatchID string `json:"match_id"`
	}
	if err := json.Unmarshal([]byte(rpc.Payload), &res); err != nil || res.MatchID == "" {
		t.Fatalf("RPC quick_match returned %q", rpc.Payload)
	}
	tc.Join(t, res.MatchID)
	return res.MatchID
}

func (tc *TestClient) Join(t *testing.T, matchID string) {
	if _, err := tc.Socket.JoinMatch(context.Background(), nil, matchID, nil); err != nil {
		t.Fatalf("Failed to join match %s: %v", matchID, err)
	}
}

// Send encodes msg as JSON and sends it with opCode.
func (tc *TestClient) Send(t *testing.T, matchID string, opCode int64, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := tc.Socket.SendMatchState(context.Background(), matchID, opCode, data, nil); err != nil {
		t.Fatalf("Failed to send op %d: %v", opCode, err)
	}
}

// WaitForMatchState drops frames until one with opCode arrives and decodes it into out.
func (tc *TestClient) WaitForMatchState(t *testing.T, opCode int64, timeout time.Duration, out interface{}) {
	deadline := time.After(timeout)
	for {
		select {
		case data := <-tc.frames:
			if data.OpCode != opCode {
				continue
			}
			if out != nil {
				if err := json.Unmarshal(data.Data, out); err != nil {
					t.Fatalf("decode op %d: %v", opCode, err)
				}
			}
			return
		case <-deadline:
			t.Fatalf("Timeout waiting for OpCode %d", opCode)
		}
	}
}
