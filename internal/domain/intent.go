package domain

// IntentKind tags the classifier's output variant.
type IntentKind string

const (
	// IntentDeviceControl carries an ordered list of device/action pairs.
	IntentDeviceControl IntentKind = "device_control"

	// IntentSmartHomeHelp carries a free-text answer to relay verbatim.
	IntentSmartHomeHelp IntentKind = "smart_home_help"

	// IntentNone means the message asks for nothing actionable. It is also
	// the fallback for classifier failures of any kind.
	IntentNone IntentKind = "none"
)

// DeviceAction is one requested {device name, action} pair inside a
// device_control intent. Action is a gateway command verb such as
// "turnOn" or "turnOff".
type DeviceAction struct {
	Device string `json:"device"`
	Action string `json:"action"`
}

// Intent is the tagged union produced by classification.
type Intent struct {
	Kind     IntentKind     `json:"intent"`
	Commands []DeviceAction `json:"commands,omitempty"`
	Answer   string         `json:"answer,omitempty"`
}

// NoneIntent is the safe fallback value.
func NoneIntent() Intent {
	return Intent{Kind: IntentNone}
}
