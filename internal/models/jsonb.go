package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func jsonbValue(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func jsonbScan(dst any, value any) error {
	if value == nil {
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("jsonb: Scan failed, expected []byte but got %T", value)
	}

	return json.Unmarshal(b, dst)
}
