package protocol

import "encoding/json"

// Host panel message types.
const (
	TypeAction    = "action"
	TypeActionAck = "action_ack"
	TypeEvent     = "event"
	TypeError     = "error"
)

// Host panel actions.
const (
	ActionPlot   = "plot"
	ActionCenter = "center"
)

// HostMessage is the frame exchanged with host panels over /ws/panel.
type HostMessage struct {
	MsgID     string          `json:"msg_id"`
	TraceID   string          `json:"trace_id,omitempty"`
	Type      string          `json:"type"`
	SurfaceID string          `json:"surface_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ActionPayload struct {
	Action string  `json:"action"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Name   string  `json:"name,omitempty"`
}

type ActionAckPayload struct {
	ActionMsgID string `json:"action_msg_id"`
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	FeatureID   string `json:"feature_id,omitempty"`
}

type EventPayload struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
