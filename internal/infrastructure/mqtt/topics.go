package mqtt

import "strings"

// TopicPrefix is the root of every HomeAlone topic.
const TopicPrefix = "homealone"

// Topics provides builders for HomeAlone MQTT topics.
//
//	homealone/command/relay/<module>.<channel>   inbound actions
//	homealone/state/relay/<module>.<channel>     outcome of the last action (retained)
//	homealone/system/status                      online/offline (retained, LWT)
type Topics struct{}

// RelayCommand returns the command topic for a relay.
//
// Example: homealone/command/relay/3.4
func (Topics) RelayCommand(relay string) string {
	return TopicPrefix + "/command/relay/" + relay
}

// RelayState returns the state topic for a relay.
//
// Example: homealone/state/relay/3.4
func (Topics) RelayState(relay string) string {
	return TopicPrefix + "/state/relay/" + relay
}

// AllRelayCommands matches the command topic of every relay.
//
// Pattern: homealone/command/relay/+
func (Topics) AllRelayCommands() string {
	return TopicPrefix + "/command/relay/+"
}

// SystemStatus returns the service status topic.
//
// Example: homealone/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// RelayFromCommandTopic extracts the relay segment from a command topic.
// It returns false if topic is not a relay command topic.
func (Topics) RelayFromCommandTopic(topic string) (string, bool) {
	relay, ok := strings.CutPrefix(topic, TopicPrefix+"/command/relay/")
	if !ok || relay == "" || strings.Contains(relay, "/") {
		return "", false
	}
	return relay, true
}
