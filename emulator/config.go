package emulator

import (
	"bufio"
	"errors"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// Config holds the emulator settings that can be read from a TOML file.
type Config struct {
	Strict     bool // Unknown opcodes stop the program.
	StackCheck bool // Stack overflow and underflow stop the program.
	TickLimit  int  // Maximum ticks for Run, or 0 for no limit.
	Trace      bool // Log a trace line before every tick.
	Verbose    bool // Verbose logging.
}

// DefaultConfig is the tolerant configuration.
var DefaultConfig = Config{}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return errors.New(f("field '%s' is not defined in %s", field, rt.String()))
	},
}

// LoadConfig reads a TOML configuration file over the values in cfg.
func LoadConfig(file string, cfg *Config) (err error) {
	fh, err := os.Open(file)
	if err != nil {
		err = errors.Join(ErrConfig, err)
		return
	}
	defer fh.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(fh)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		err = errors.Join(ErrConfig, err)
	}

	return
}
