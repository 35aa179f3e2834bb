package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and seals the config at filepath. Values of the form
// ${ENVVAR} are substituted from the process environment before
// parsing, so secrets stay out of the file.
func Load(filepath string) (*Config, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal([]byte(os.Expand(string(content), os.Getenv)))
}

func Unmarshal(conf []byte) (out *Config, err error) {
	var m *ConfigMarshall
	if err := yaml.Unmarshal(conf, &m); err != nil {
		return nil, err
	}
	out = TrySeal(m)
	return out, nil
}
