// Package config implements the Config Loader (A2): decoding the JSON
// configuration file into typed runtime.PLCConfig values. Decodes into
// []map[string]interface{} first, then github.com/mitchellh/mapstructure
// into the typed struct, rather than unmarshalling straight into a typed
// slice, so a malformed single PLC entry can be reported with the
// plc_name still available for the error message.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"

	"finsbridge/pkg/runtime"
)

// ConfigError reports a problem with one PLC entry in the configuration
// file, named per §7.
type ConfigError struct {
	PLCName string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.PLCName == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: plc %q: %s", e.PLCName, e.Reason)
}

// rawTag mirrors one element of a PLC's "address_mappings" array.
type rawTag struct {
	TagName    string `mapstructure:"tag_name"`
	MemoryArea string `mapstructure:"memory_area"`
	Address    uint   `mapstructure:"address"`
	DataType   string `mapstructure:"data_type"`
	StringLen  int    `mapstructure:"string_len"`
}

// rawPLC mirrors one element of the top-level configuration array.
type rawPLC struct {
	PLCName         string   `mapstructure:"plc_name"`
	IP              string   `mapstructure:"ip"`
	OpcuaURL        string   `mapstructure:"opcua_url"`
	SleepIntervalMs *int     `mapstructure:"sleep_interval_ms"`
	AddressMappings []rawTag `mapstructure:"address_mappings"`
}

// Load reads path, a JSON array of PLC entries, and returns validated
// runtime.PLCConfig values in file order.
func Load(path string) ([]runtime.PLCConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var generic []map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(generic))
	out := make([]runtime.PLCConfig, 0, len(generic))

	for _, entry := range generic {
		var raw rawPLC
		if err := mapstructure.Decode(entry, &raw); err != nil {
			name, _ := entry["plc_name"].(string)
			return nil, &ConfigError{PLCName: name, Reason: fmt.Sprintf("decode entry: %v", err)}
		}

		plc, err := validate(raw)
		if err != nil {
			return nil, err
		}
		if seen[plc.Name] {
			return nil, &ConfigError{PLCName: plc.Name, Reason: "duplicate plc_name"}
		}
		seen[plc.Name] = true

		out = append(out, plc)
	}
	return out, nil
}

func validate(raw rawPLC) (runtime.PLCConfig, error) {
	if raw.PLCName == "" {
		return runtime.PLCConfig{}, &ConfigError{Reason: "plc_name is required"}
	}
	if raw.IP == "" {
		return runtime.PLCConfig{}, &ConfigError{PLCName: raw.PLCName, Reason: "ip is required"}
	}

	interval := runtime.DefaultSleepInterval
	if raw.SleepIntervalMs != nil && *raw.SleepIntervalMs >= 0 {
		interval = time.Duration(*raw.SleepIntervalMs) * time.Millisecond
	}

	tags := make([]runtime.TagMapping, 0, len(raw.AddressMappings))
	for _, rt := range raw.AddressMappings {
		tag, err := validateTag(raw.PLCName, rt)
		if err != nil {
			return runtime.PLCConfig{}, err
		}
		tags = append(tags, tag)
	}

	return runtime.PLCConfig{
		Name:          raw.PLCName,
		IP:            raw.IP,
		OpcuaURL:      raw.OpcuaURL,
		SleepInterval: interval,
		Tags:          tags,
	}, nil
}

func validateTag(plcName string, rt rawTag) (runtime.TagMapping, error) {
	if rt.TagName == "" {
		return runtime.TagMapping{}, &ConfigError{PLCName: plcName, Reason: "tag_name is required"}
	}

	area, ok := runtime.StringToMemoryArea[rt.MemoryArea]
	if !ok {
		return runtime.TagMapping{}, &ConfigError{
			PLCName: plcName,
			Reason:  fmt.Sprintf("tag %q: unrecognized memory_area %q", rt.TagName, rt.MemoryArea),
		}
	}

	dt, ok := runtime.StringToDataType[rt.DataType]
	if !ok {
		return runtime.TagMapping{}, &ConfigError{
			PLCName: plcName,
			Reason:  fmt.Sprintf("tag %q: unrecognized data_type %q", rt.TagName, rt.DataType),
		}
	}

	if dt == runtime.STRING && rt.StringLen <= 0 {
		return runtime.TagMapping{}, &ConfigError{
			PLCName: plcName,
			Reason:  fmt.Sprintf("tag %q: string_len must be positive for STRING", rt.TagName),
		}
	}

	return runtime.TagMapping{
		TagName:    rt.TagName,
		MemoryArea: area,
		Address:    rt.Address,
		DataType:   dt,
		StringLen:  rt.StringLen,
	}, nil
}
