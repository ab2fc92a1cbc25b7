package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
const (
	TopicPrefix         = "playback"
	TopicPrefixSystem   = TopicPrefix + "/system"
	TopicPrefixDriver   = TopicPrefix + "/driver"
	TopicPrefixCore     = TopicPrefix + "/core"
	TopicPrefixCommand  = TopicPrefix + "/command"
	TopicPrefixResponse = TopicPrefix + "/response"
)

// Topics builds playback MQTT topics.
//
//	topic := mqtt.Topics{}.DriverState("video")
//	// playback/driver/video/state
type Topics struct{}

// SystemStatus returns the online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// DriverState returns the retained state topic of a driver category.
func (Topics) DriverState(category string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDriver, category)
}

// CoreEvent returns the topic for events of one lifecycle command.
func (Topics) CoreEvent(command string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, command)
}

// LifecycleCommand returns the topic remote controllers send commands to.
func (Topics) LifecycleCommand() string {
	return TopicPrefixCommand + "/lifecycle"
}

// LifecycleResponse returns the topic a command result is published to.
func (Topics) LifecycleResponse(requestID string) string {
	return fmt.Sprintf("%s/lifecycle/%s", TopicPrefixResponse, requestID)
}

// AllDriverStates matches every driver state topic.
func (Topics) AllDriverStates() string {
	return TopicPrefixDriver + "/+/state"
}

// AllCoreEvents matches every lifecycle event topic.
func (Topics) AllCoreEvents() string {
	return TopicPrefixCore + "/event/+"
}

// AllTopics matches all playback traffic.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// Segment returns the n-th "/"-separated level of a topic, or "" when the
// topic is shorter.
func Segment(topic string, n int) string {
	parts := strings.Split(topic, "/")
	if n < 0 || n >= len(parts) {
		return ""
	}
	return parts[n]
}
