package models

import (
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSONB column into dest. NULL leaves dest untouched.
func scanJSON(value interface{}, dest interface{}, name string) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %s", value, name)
	}
}
