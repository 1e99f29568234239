// Command simulate drives a scripted check-in call against a running server,
// printing every agent response. Useful for exercising the scenario flows
// without a voice platform.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/fleetline/haulcall/messages"
)

var scripts = map[string][]string{
	"checkin": {
		"Hi, yeah, I'm driving right now",
		"I'm near Exit 42 on I-80",
		"Should be there by 3pm",
		"Yes, that's correct",
	},
	"emergency": {
		"I just had a blowout on I-80, pulling over now",
		"No injuries, everyone's fine",
	},
	"mumble": {
		"[inaudible]",
		"uh",
		"hm",
		"ok I'm driving, near Route 9, ETA tomorrow morning",
		"yes",
	},
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/call-websocket/sim-call-1", "server websocket URL")
	script := flag.String("script", "checkin", "conversation script: checkin, emergency, mumble")
	flag.Parse()

	lines, ok := scripts[*script]
	if !ok {
		log.Fatalf("unknown script %q", *script)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	send(conn, messages.ClientEvent{
		Type: messages.EventStart,
		Start: &messages.StartPayload{
			DriverName:  "Mike",
			PhoneNumber: "+15550100",
			LoadNumber:  "7891-B",
		},
	})
	readEvent(conn) // opening line

	for _, line := range lines {
		fmt.Printf(">> driver: %s\n", line)
		send(conn, messages.ClientEvent{
			Type: messages.EventSegment,
			Segment: &messages.TranscriptSegment{
				Speaker:    messages.SpeakerDriver,
				Text:       line,
				Timestamp:  time.Now().UTC(),
				Final:      true,
				Confidence: 0.95,
			},
		})
		ev := readEvent(conn)
		if ev != nil && (ev.Type == messages.TypeEndCall || ev.Type == messages.TypeEscalate) {
			return
		}
	}

	send(conn, messages.ClientEvent{Type: messages.EventEnd})
}

func send(conn *websocket.Conn, ev messages.ClientEvent) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		log.Fatalf("encode failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("write failed: %v", err)
	}
}

func readEvent(conn *websocket.Conn) *messages.ServerEvent {
	_ = conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Fatalf("read failed: %v", err)
	}
	var ev messages.ServerEvent
	if err := sonic.Unmarshal(data, &ev); err != nil {
		log.Fatalf("decode failed: %v", err)
	}
	fmt.Printf("<< %s: %s\n", ev.Type, payloadText(ev))
	return &ev
}

func payloadText(ev messages.ServerEvent) string {
	data, _ := sonic.Marshal(ev.Payload)
	return string(data)
}
