package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots.
const (
	// DefaultCapturePrefix is where the capture collaborator publishes.
	DefaultCapturePrefix = "gamepadio/capture"

	// TopicPrefixStatus holds retained online/offline status per client.
	TopicPrefixStatus = "gamepadio/status"
)

// Capture event kinds, the last topic level under the capture prefix.
const (
	KindConnect    = "connect"
	KindDisconnect = "disconnect"
	KindButton     = "button"
	KindAxis       = "axis"
	KindHaptic     = "haptic"
)

// Topics builds topic names under Prefix (DefaultCapturePrefix when empty).
//
//	t := mqtt.Topics{Prefix: "pads/capture"}
//	t.Button()   // "pads/capture/button"
//	t.Haptic(2)  // "pads/capture/haptic/2"
type Topics struct {
	Prefix string
}

func (t Topics) root() string {
	if p := strings.Trim(t.Prefix, "/"); p != "" {
		return p
	}
	return DefaultCapturePrefix
}

// Connect is the inbound topic for pad connections.
func (t Topics) Connect() string { return t.root() + "/" + KindConnect }

// Disconnect is the inbound topic for pad disconnections.
func (t Topics) Disconnect() string { return t.root() + "/" + KindDisconnect }

// Button is the inbound topic for button samples.
func (t Topics) Button() string { return t.root() + "/" + KindButton }

// Axis is the inbound topic for axis samples.
func (t Topics) Axis() string { return t.root() + "/" + KindAxis }

// Inbound is every topic the relay subscribes to.
func (t Topics) Inbound() []string {
	return []string{t.Connect(), t.Disconnect(), t.Button(), t.Axis()}
}

// Haptic is the outbound topic for commands to the pad at connectionIndex.
func (t Topics) Haptic(connectionIndex int) string {
	return fmt.Sprintf("%s/%s/%d", t.root(), KindHaptic, connectionIndex)
}

// AllHaptic matches every haptic topic. The capture collaborator subscribes to it.
func (t Topics) AllHaptic() string {
	return t.root() + "/" + KindHaptic + "/+"
}

// Status is the retained status topic for clientID.
func (Topics) Status(clientID string) string {
	return TopicPrefixStatus + "/" + clientID
}

// Kind returns the event kind of an inbound topic under the prefix.
func (t Topics) Kind(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.root()+"/")
	if !ok {
		return "", false
	}
	switch rest {
	case KindConnect, KindDisconnect, KindButton, KindAxis:
		return rest, true
	}
	return "", false
}
