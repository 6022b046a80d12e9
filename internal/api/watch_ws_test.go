package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWatch(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]interface{}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	return frame
}

func TestWatchSocketStreamsSnapshots(t *testing.T) {
	engine, watcher := newTestEngine(t)
	defer watcher.Close()
	server := httptest.NewServer(engine)
	defer server.Close()

	conn := dialWatch(t, server)
	defer conn.Close()

	err := conn.WriteJSON(map[string]interface{}{"watch": "posts", "type": "question"})
	if err != nil {
		t.Fatalf("subscribe frame: %v", err)
	}

	// Initial empty snapshot
	frame := readFrame(t, conn)
	if frame["event"] != "snapshot" {
		t.Fatalf("frame = %v", frame)
	}
	if list, ok := frame["data"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("initial data = %v", frame["data"])
	}

	// A write through the RPC surface shows up on the socket
	token := signToken(t, "u1", "Sam")
	created := resultMap(t, rpc(t, engine, token, "posts.create", map[string]interface{}{
		"type": "question", "title": "Observed over websocket", "description": "d",
	}))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("never observed the created post")
		}
		frame = readFrame(t, conn)
		list, _ := frame["data"].([]interface{})
		if len(list) == 1 {
			post := list[0].(map[string]interface{})
			if post["id"] != created["id"] {
				t.Errorf("post id = %v", post["id"])
			}
			return
		}
	}
}

func TestWatchSocketRejectsBadFrame(t *testing.T) {
	engine, watcher := newTestEngine(t)
	defer watcher.Close()
	server := httptest.NewServer(engine)
	defer server.Close()

	conn := dialWatch(t, server)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{"watch": "everything"}); err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, conn)
	if frame["event"] != "error" {
		t.Fatalf("frame = %v", frame)
	}
	if code, _ := frame["code"].(float64); int(code) != ErrInvalidParams {
		t.Errorf("code = %v", frame["code"])
	}
}

func TestWatchSocketSinglePost(t *testing.T) {
	engine, watcher := newTestEngine(t)
	defer watcher.Close()
	server := httptest.NewServer(engine)
	defer server.Close()

	token := signToken(t, "u1", "Sam")
	created := resultMap(t, rpc(t, engine, token, "posts.create", map[string]interface{}{
		"type": "article", "title": "Watched single document", "abstract": "a", "body": "b",
	}))
	id := created["id"].(string)

	conn := dialWatch(t, server)
	defer conn.Close()
	if err := conn.WriteJSON(map[string]interface{}{"watch": "post", "id": id}); err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, conn)
	data, ok := frame["data"].(map[string]interface{})
	if !ok || data["id"] != id {
		t.Fatalf("frame = %v", frame)
	}

	// Deletion arrives as a null snapshot
	resultMap(t, rpc(t, engine, token, "posts.delete", map[string]interface{}{"id": id}))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("never observed the deletion")
		}
		frame = readFrame(t, conn)
		if frame["data"] == nil {
			return
		}
	}
}

// Guard against the snapshot frame shape drifting: clients depend on
// event/data keys only.
func TestSnapshotFrameShape(t *testing.T) {
	raw, err := json.Marshal(snapshotFrame{Event: "snapshot", Data: nil})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"event":"snapshot","data":null}` {
		t.Errorf("frame = %s", raw)
	}
}
