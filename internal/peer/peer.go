// Package peer serves the camera stream and motion commands over WebRTC data
// channels.
package peer

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// Data channel labels.
const (
	FramesLabel  = "frames"
	ControlLabel = "control"
)

// DefaultICEServers is used when no STUN server is configured.
var DefaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// ICEServers turns a comma separated list of STUN/TURN URLs into an ICE
// configuration. An empty list yields no servers, which limits the rover to
// host candidates on the local network.
func ICEServers(urls string) []webrtc.ICEServer {
	var list []string
	for _, u := range strings.Split(urls, ",") {
		if u = strings.TrimSpace(u); u != "" {
			list = append(list, u)
		}
	}
	if len(list) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: list}}
}

// NewPeerConnection creates a PeerConnection using the given ICE servers.
func NewPeerConnection(servers []webrtc.ICEServer) (*webrtc.PeerConnection, error) {
	return webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
}
