package homeassistant

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{Prefix: "homeassistant", DeviceID: "inverter_123"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "Availability",
			got:      topics.Availability(),
			expected: "homeassistant/inverter_123/availability",
		},
		{
			name:     "Config",
			got:      topics.Config(KindSensor, "load_power"),
			expected: "homeassistant/sensor/inverter_123/load_power/config",
		},
		{
			name:     "State",
			got:      topics.State(KindSensor, "load_power"),
			expected: "homeassistant/sensor/inverter_123/load_power/state",
		},
		{
			name:     "Command",
			got:      topics.Command(KindNumber, "min_soc"),
			expected: "homeassistant/number/inverter_123/min_soc/set",
		},
		{
			name:     "Select command",
			got:      topics.Command(KindSelect, "work_mode"),
			expected: "homeassistant/select/inverter_123/work_mode/set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestTopicsDefaultPrefix(t *testing.T) {
	topics := Topics{DeviceID: "wallbox_9"}

	if got := topics.Availability(); got != "homeassistant/wallbox_9/availability" {
		t.Errorf("Availability() = %q, want default prefix", got)
	}
}

func TestTopicsCustomPrefix(t *testing.T) {
	topics := Topics{Prefix: "ha", DeviceID: "wallbox_9"}

	if got := topics.State(KindSensor, "power"); got != "ha/sensor/wallbox_9/power/state" {
		t.Errorf("State() = %q", got)
	}
}

func TestParseCommandTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantKey string
		wantOK  bool
	}{
		{
			name:    "number command",
			topic:   "homeassistant/number/inverter_123/min_soc/set",
			wantKey: "min_soc",
			wantOK:  true,
		},
		{
			name:    "select command",
			topic:   "homeassistant/select/inverter_123/work_mode/set",
			wantKey: "work_mode",
			wantOK:  true,
		},
		{
			name:    "custom prefix with extra segments",
			topic:   "site/a/number/inverter_123/export_limit/set",
			wantKey: "export_limit",
			wantOK:  true,
		},
		{
			name:   "state topic is not a command",
			topic:  "homeassistant/number/inverter_123/min_soc/state",
			wantOK: false,
		},
		{
			name:   "too few segments",
			topic:  "homeassistant/inverter_123/min_soc/set",
			wantOK: false,
		},
		{
			name:   "availability topic",
			topic:  "homeassistant/inverter_123/availability",
			wantOK: false,
		},
		{
			name:   "empty",
			topic:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := ParseCommandTopic(tt.topic)
			if ok != tt.wantOK {
				t.Fatalf("ParseCommandTopic(%q) ok = %v, want %v", tt.topic, ok, tt.wantOK)
			}
			if ok && key != tt.wantKey {
				t.Errorf("ParseCommandTopic(%q) key = %q, want %q", tt.topic, key, tt.wantKey)
			}
		})
	}
}

func TestEntityTitle(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"load_power", "Load Power"},
		{"max_charge_current", "Max Charge Current"},
		{"state", "State"},
		{"battery_soc", "Battery Soc"},
	}

	for _, tt := range tests {
		if got := entityTitle(tt.key); got != tt.want {
			t.Errorf("entityTitle(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestEntityKind(t *testing.T) {
	if kind := InverterEntities.EntityKind("load_power"); kind != KindSensor {
		t.Errorf("load_power kind = %q, want sensor", kind)
	}
	if kind := InverterEntities.EntityKind("min_soc"); kind != KindNumber {
		t.Errorf("min_soc kind = %q, want number", kind)
	}
	if kind := InverterEntities.EntityKind("work_mode"); kind != KindSelect {
		t.Errorf("work_mode kind = %q, want select", kind)
	}
	if kind := InverterEntities.EntityKind("nonexistent"); kind != "" {
		t.Errorf("nonexistent kind = %q, want empty", kind)
	}
}

func TestIsWritable(t *testing.T) {
	if InverterEntities.IsWritable("load_power") {
		t.Error("load_power should not be writable")
	}
	if !InverterEntities.IsWritable("export_limit") {
		t.Error("export_limit should be writable")
	}
	if !InverterEntities.IsWritable("work_mode") {
		t.Error("work_mode should be writable")
	}
	if WallboxEntities.IsWritable("power") {
		t.Error("wallbox power should not be writable")
	}
}
