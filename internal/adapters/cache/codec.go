package cache

import (
	"encoding/json"
	"fmt"
	"strings"

	"route-deviation-service/internal/domain"
)

func encodeRoute(r domain.Route) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode route: %w", err)
	}
	return string(b), nil
}

// decodeRoute rejects payloads that no longer form a valid route so a
// corrupted entry is treated as an error rather than served.
func decodeRoute(payload string) (domain.Route, error) {
	var r domain.Route
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return domain.Route{}, fmt.Errorf("decode route: %w", err)
	}
	if err := r.Validate(); err != nil {
		return domain.Route{}, fmt.Errorf("decode route: %w", err)
	}
	return r, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("route cache: key must not be empty")
	}
	return nil
}
