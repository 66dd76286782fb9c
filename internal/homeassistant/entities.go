package homeassistant

// Entity kind strings as used in discovery topic paths.
const (
	KindSensor = "sensor"
	KindNumber = "number"
	KindSelect = "select"
)

// SensorConfig holds discovery metadata for a read-only sensor entity.
type SensorConfig struct {
	UnitOfMeasurement string
	DeviceClass       string
	StateClass        string
	// Options is only set for enum sensors (device_class "enum").
	Options []string
}

// NumberConfig holds discovery metadata for a writable number entity.
type NumberConfig struct {
	UnitOfMeasurement string
	Min               int
	Max               int
	Step              int
	Mode              string
}

// SelectConfig holds discovery metadata for a writable select entity.
type SelectConfig struct {
	Options []string
}

// Entities is the static entity schema for one device kind. The maps are
// keyed by entity key (the topic path segment and state map key).
type Entities struct {
	Sensors map[string]SensorConfig
	Numbers map[string]NumberConfig
	Selects map[string]SelectConfig
}

// EntityKind returns the discovery kind ("sensor", "number", "select") for
// key, or "" when the key is not in the schema.
func (e Entities) EntityKind(key string) string {
	if _, ok := e.Sensors[key]; ok {
		return KindSensor
	}
	if _, ok := e.Numbers[key]; ok {
		return KindNumber
	}
	if _, ok := e.Selects[key]; ok {
		return KindSelect
	}
	return ""
}

// IsWritable reports whether key names a number or select entity.
func (e Entities) IsWritable(key string) bool {
	kind := e.EntityKind(key)
	return kind == KindNumber || kind == KindSelect
}

// Inverter work modes as exposed through the work_mode select.
const (
	WorkModeSelfUse      = "self_use"
	WorkModeForceTimeUse = "force_time_use"
	WorkModeBackup       = "backup"
	WorkModeFeedInFirst  = "feed_in_first"
)

// InverterEntities is the entity schema for RENAC battery inverters.
var InverterEntities = Entities{
	Numbers: map[string]NumberConfig{
		"max_charge_current": {
			UnitOfMeasurement: "A",
			Min:               0,
			Max:               30,
			Step:              1,
			Mode:              "box",
		},
		"max_discharge_current": {
			UnitOfMeasurement: "A",
			Min:               0,
			Max:               30,
			Step:              1,
			Mode:              "box",
		},
		"min_soc": {
			UnitOfMeasurement: "%",
			Min:               5,
			Max:               100,
			Step:              1,
			Mode:              "box",
		},
		"min_soc_on_grid": {
			UnitOfMeasurement: "%",
			Min:               5,
			Max:               100,
			Step:              1,
			Mode:              "box",
		},
		"export_limit": {
			UnitOfMeasurement: "W",
			Min:               0,
			Max:               60000,
			Step:              1,
			Mode:              "box",
		},
		"power_limit_percent": {
			UnitOfMeasurement: "Pn/100",
			Min:               -100,
			Max:               100,
			Step:              1,
			Mode:              "box",
		},
	},
	Selects: map[string]SelectConfig{
		"work_mode": {
			Options: []string{
				WorkModeSelfUse,
				WorkModeForceTimeUse,
				WorkModeBackup,
				WorkModeFeedInFirst,
			},
		},
	},
	Sensors: map[string]SensorConfig{
		// Real-time values
		"load_power": {
			UnitOfMeasurement: "W",
			DeviceClass:       "power",
			StateClass:        "measurement",
		},
		"pv_power": {
			UnitOfMeasurement: "W",
			DeviceClass:       "power",
			StateClass:        "measurement",
		},
		"battery_power": {
			UnitOfMeasurement: "W",
			DeviceClass:       "power",
			StateClass:        "measurement",
		},
		"battery_soc": {
			UnitOfMeasurement: "%",
			DeviceClass:       "battery",
			StateClass:        "measurement",
		},
		"eps_power": {
			UnitOfMeasurement: "W",
			DeviceClass:       "power",
			StateClass:        "measurement",
		},

		// Energy counters
		"pv_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"pv_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"battery_total_charge_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"battery_today_charge_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"battery_total_discharge_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"battery_today_discharge_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"feedin_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"feedin_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"consumption_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"consumption_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"output_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"output_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"load_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"load_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"input_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"input_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"eps_total_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"eps_today_energy": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
	},
}

// WallboxEntities is the entity schema for RENAC EV wallboxes.
// Wallboxes expose telemetry only, so there are no writable entities.
var WallboxEntities = Entities{
	Sensors: map[string]SensorConfig{
		"phase_a_voltage": {
			UnitOfMeasurement: "V",
			DeviceClass:       "voltage",
			StateClass:        "measurement",
		},
		"phase_b_voltage": {
			UnitOfMeasurement: "V",
			DeviceClass:       "voltage",
			StateClass:        "measurement",
		},
		"phase_c_voltage": {
			UnitOfMeasurement: "V",
			DeviceClass:       "voltage",
			StateClass:        "measurement",
		},
		"phase_a_current": {
			UnitOfMeasurement: "A",
			DeviceClass:       "current",
			StateClass:        "measurement",
		},
		"phase_b_current": {
			UnitOfMeasurement: "A",
			DeviceClass:       "current",
			StateClass:        "measurement",
		},
		"phase_c_current": {
			UnitOfMeasurement: "A",
			DeviceClass:       "current",
			StateClass:        "measurement",
		},
		"power": {
			UnitOfMeasurement: "W",
			DeviceClass:       "power",
			StateClass:        "measurement",
		},
		"temperature": {
			UnitOfMeasurement: "°C",
			DeviceClass:       "temperature",
			StateClass:        "measurement",
		},
		"current_charging_amount": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "measurement",
		},
		"current_charging_time": {
			UnitOfMeasurement: "min",
			StateClass:        "measurement",
		},
		"total_charge": {
			UnitOfMeasurement: "kWh",
			DeviceClass:       "energy",
			StateClass:        "total_increasing",
		},
		"state": {
			DeviceClass: "enum",
			Options: []string{
				"idle", "charging", "paused", "disconnected",
				"error", "completed", "scheduled",
			},
		},
	},
}
