package renac

import "fmt"

// WorkMode is the inverter's operating strategy.
type WorkMode uint8

const (
	WorkModeSelfUse WorkMode = iota
	WorkModeForceTimeUse
	WorkModeBackup
	WorkModeFeedInFirst
)

var workModeNames = [...]string{
	WorkModeSelfUse:      "self_use",
	WorkModeForceTimeUse: "force_time_use",
	WorkModeBackup:       "backup",
	WorkModeFeedInFirst:  "feed_in_first",
}

// String returns the wire/UI name of the mode, e.g. "self_use".
func (m WorkMode) String() string {
	if int(m) < len(workModeNames) {
		return workModeNames[m]
	}
	return fmt.Sprintf("work_mode(%d)", uint8(m))
}

// ParseWorkMode maps a mode name back to its code.
func ParseWorkMode(name string) (WorkMode, error) {
	for code, n := range workModeNames {
		if n == name {
			return WorkMode(code), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWorkMode, name)
}

// workModeFromCode validates a device-reported mode code.
func workModeFromCode(code uint16) (WorkMode, error) {
	if int(code) >= len(workModeNames) {
		return 0, fmt.Errorf("%w: code %d", ErrUnknownWorkMode, code)
	}
	return WorkMode(code), nil
}
