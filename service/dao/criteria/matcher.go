package criteria

import (
	"github.com/viant/hitl/service/dao"
)

// Match reports whether an entity described by fields satisfies every
// parameter. Parameters naming a field the entity does not expose are
// ignored.
func Match(fields map[string]string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		value, ok := fields[parameter.Name]
		if !ok {
			continue
		}
		if !contains(parameter.Values(), value) {
			return false
		}
	}
	return true
}

func contains(candidates []string, value string) bool {
	for _, candidate := range candidates {
		if candidate == value {
			return true
		}
	}
	return false
}
