package channel

import (
	"fmt"
	"strings"
)

const (
	subjectPrefix = "pulse.peer"

	frameHeader = "Pulse-Frame"
	linkHeader  = "Pulse-Link"
	frameData   = "data"
	framePing   = "ping"
	frameClose  = "close"

	replyAccepted = "ok"
	replyRejected = "not hosting"
)

// connectSubject receives handshake requests for a peer.
func connectSubject(id string) string {
	return fmt.Sprintf("%s.%s.connect", subjectPrefix, id)
}

// dataSubject carries frames sent by from to to.
func dataSubject(to, from string) string {
	return fmt.Sprintf("%s.%s.data.%s", subjectPrefix, to, from)
}

func dataWildcard(to string) string {
	return fmt.Sprintf("%s.%s.data.*", subjectPrefix, to)
}

// senderOf returns the sending peer of a data subject.
func senderOf(subject string) string {
	return subject[strings.LastIndexByte(subject, '.')+1:]
}
