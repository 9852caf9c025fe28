package shared

import "time"

// ParseTimeNullable 解析 RFC3339 时间，空字符串返回 nil
func ParseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
