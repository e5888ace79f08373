package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jvanbruegge/AURIS/pus"
)

func testDictionary() *pus.ParameterDictionary {
	return &pus.ParameterDictionary{
		Packets: []pus.PacketDef{
			{
				APID: 324,
				Name: "HK_ACS",
				Parameters: []pus.ParamDef{
					{ID: "ACS001", Name: "MODE", PTC: pus.PTCSignedInteger, PFC: 4, ByteOffset: 15},
					{ID: "ACS002", Name: "WHEEL_SPEED", PTC: pus.PTCSignedInteger, PFC: 12, ByteOffset: 16},
				},
			},
		},
	}
}

func newTestServer() *Server {
	s := &Server{
		Config:     DefaultConfig(),
		Dictionary: testDictionary(),
		PacketChan: make(chan pus.Packet, 10),
		Log:        zerolog.Nop(),
	}
	s.clients = &map[*websocket.Conn]*Client{}
	s.addClientChan = make(chan *Client, 20)
	s.removeClientChan = make(chan *Client, 20)
	s.subscribeChan = make(chan *subscriptionMsg, 20)
	go s.handleSubscriptions()
	go s.packetPump()
	return s
}

// buildPacket assembles a telemetry packet with a PUS secondary header
func buildPacket(apid, seq int, stamp pus.CUCTime, data []byte) pus.Packet {
	datalen := pus.SecondaryHeaderLength + len(data)
	buf := make([]byte, pus.PrimaryHeaderLength+datalen)
	buf[0] = byte(((apid >> 8) & 0x7) | 0x8)
	buf[1] = byte(apid & 0xFF)
	buf[2] = byte(seq>>8) | 192
	buf[3] = byte(seq & 0xFF)
	buf[4] = byte((datalen - 1) >> 8)
	buf[5] = byte((datalen - 1) & 0xFF)
	buf[6] = 0x10
	buf[7] = 3
	buf[8] = 25
	pus.TimeValue(stamp).WriteAligned(buf, 9)
	copy(buf[pus.PrimaryHeaderLength+pus.SecondaryHeaderLength:], data)
	return buf
}

func TestDecomPacket(t *testing.T) {
	s := newTestServer()

	data := make([]byte, 4)
	pus.Int8Value(-5).WriteAligned(data, 0)
	pus.Int16Value(pus.BigEndian, 1500).WriteAligned(data, 1)
	pkt := buildPacket(324, 1, pus.NewCUCTime(1000, 0, false), data)

	msgs := s.decomPacket(pkt)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(msgs))
	}

	var update ValueUpdate
	if err := json.Unmarshal(msgs[0], &update); err != nil {
		t.Fatalf("bad update json: %v", err)
	}
	if update.Packet != "HK_ACS" || update.Name != "MODE" || update.Value != "-5" {
		t.Errorf("unexpected first update: %+v", update)
	}

	if err := json.Unmarshal(msgs[1], &update); err != nil {
		t.Fatalf("bad update json: %v", err)
	}
	if update.Name != "WHEEL_SPEED" || update.Value != "1500" {
		t.Errorf("unexpected second update: %+v", update)
	}
}

func TestDecomPacketUnknownAPID(t *testing.T) {
	s := newTestServer()
	pkt := buildPacket(999, 1, pus.NewCUCTime(0, 0, false), nil)
	if msgs := s.decomPacket(pkt); msgs != nil {
		t.Errorf("unknown apid should produce no updates, got %d", len(msgs))
	}
}

func TestDictionaryEndpoints(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/dictionary")
	if err != nil {
		t.Fatalf("dictionary request failed: %v", err)
	}
	var dict pus.ParameterDictionary
	if err := json.NewDecoder(resp.Body).Decode(&dict); err != nil {
		t.Fatalf("bad dictionary json: %v", err)
	}
	resp.Body.Close()
	if len(dict.Packets) != 1 || dict.Packets[0].Name != "HK_ACS" {
		t.Errorf("unexpected dictionary: %+v", dict.Packets)
	}

	resp, err = http.Get(ts.URL + "/dictionary/apid/324")
	if err != nil {
		t.Fatalf("apid request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("apid 324: expected 200 got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/dictionary/apid/999")
	if err != nil {
		t.Fatalf("apid request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("apid 999: expected 404 got %d", resp.StatusCode)
	}
}

// TestRealtimeSubscription runs the full websocket flow: subscribe, push
// a packet, receive a decoded value update
func TestRealtimeSubscription(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{"request": "subscribe", "apids": []int{324}, "token": "t1"}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp map[string]interface{}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("reading subscribe response: %v", err)
	}
	if resp["response"] != "subscribe" || resp["status"] != "success" || resp["token"] != "t1" {
		t.Fatalf("unexpected subscribe response: %v", resp)
	}

	data := make([]byte, 4)
	pus.Int8Value(42).WriteAligned(data, 0)
	s.PacketChan <- buildPacket(324, 5, pus.NewCUCTime(2000, 0, false), data)

	var update ValueUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("reading value update: %v", err)
	}
	if update.Name != "MODE" || update.Value != "42" {
		t.Errorf("unexpected update: %+v", update)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "auris.toml")
	content := "host = \"127.0.0.1\"\nport = 9000\ndictionary = \"dict.json\"\n"
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(filename)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 9000 || cfg.Dictionary != "dict.json" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if err := os.WriteFile(filename, []byte("bogus_key = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(filename); err == nil {
		t.Error("unknown keys should be rejected")
	}
}
