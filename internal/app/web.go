package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/drive_computer/internal/config"
	"github.com/relabs-tech/drive_computer/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// snapshotHub fans the latest telemetry snapshot out to every connected
// websocket client.
type snapshotHub struct {
	mu      sync.RWMutex
	last    telemetry.Snapshot
	have    bool
	clients map[*websocket.Conn]struct{}
}

func newSnapshotHub() *snapshotHub {
	return &snapshotHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *snapshotHub) update(s telemetry.Snapshot) {
	h.mu.Lock()
	h.last = s
	h.have = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(s); err != nil {
			h.remove(c)
			c.Close()
		}
	}
}

func (h *snapshotHub) latest() (telemetry.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *snapshotHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *snapshotHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// RunWeb serves the driving dashboard: a JSON API and websocket stream for
// telemetry, and POST endpoints that forward drive commands onto MQTT.
func RunWeb() error {
	cfg := config.Get()
	hub := newSnapshotHub()

	// 1) Connect to MQTT broker
	clientID := cfg.MQTTClientIDWeb
	if clientID == "" {
		clientID = "drive-web"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to telemetry and keep the latest snapshot
	token := client.Subscribe(cfg.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s telemetry.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("MQTT payload unmarshal error: %v", err)
			return
		}
		hub.update(s)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicTelemetry)

	// 3) JSON API endpoint: latest telemetry snapshot
	http.HandleFunc("/api/telemetry", func(w http.ResponseWriter, r *http.Request) {
		s, ok := hub.latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})

	// 4) Command endpoints: validate the JSON body and republish on MQTT
	http.HandleFunc("/api/drive", postCommand(client, cfg.TopicPowerCommand, func(body []byte) error {
		var c telemetry.PowerCommand
		return json.Unmarshal(body, &c)
	}))
	http.HandleFunc("/api/velocity", postCommand(client, cfg.TopicVelocityCommand, func(body []byte) error {
		var c telemetry.VelocityCommand
		return json.Unmarshal(body, &c)
	}))
	http.HandleFunc("/api/heading", postCommand(client, cfg.TopicHeadingCommand, func(body []byte) error {
		var c telemetry.HeadingCommand
		return json.Unmarshal(body, &c)
	}))

	// 5) Websocket stream: one snapshot per control tick
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		hub.add(conn)
		log.Printf("web: websocket client connected from %s", r.RemoteAddr)

		// Drain reads so close frames are processed.
		go func() {
			defer func() {
				hub.remove(conn)
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						log.Printf("web: websocket error: %v", err)
					}
					return
				}
			}
		}()
	})

	// 6) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}

// postCommand returns a handler that checks the body parses as the expected
// command type and forwards the raw payload to an MQTT topic.
func postCommand(client mqtt.Client, topic string, check func([]byte) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4096))
		if err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		if err := check(body); err != nil {
			http.Error(w, fmt.Sprintf("bad command: %v", err), http.StatusBadRequest)
			return
		}

		if token := client.Publish(topic, 0, false, body); token.Wait() && token.Error() != nil {
			log.Printf("web: publish to %s failed: %v", topic, token.Error())
			http.Error(w, "publish failed", http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}
