package dispatch

import "time"

// getString извлекает строку из конфигурации с default значением.
func getString(m map[string]any, key, defaultVal string) string {
	if val, ok := m[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

// getInt извлекает целое из конфигурации с default значением.
// JSON-числа приходят как float64.
func getInt(m map[string]any, key string, defaultVal int) int {
	if val, ok := m[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

// getFloat извлекает число из конфигурации с default значением.
func getFloat(m map[string]any, key string, defaultVal float64) float64 {
	if val, ok := m[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return defaultVal
}

// getMap извлекает вложенный объект из конфигурации.
func getMap(m map[string]any, key string) map[string]any {
	if val, ok := m[key]; ok {
		if mm, ok := val.(map[string]any); ok {
			return mm
		}
	}
	return nil
}

// getStringSlice извлекает список строк из конфигурации.
func getStringSlice(m map[string]any, key string) []string {
	val, ok := m[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// getTimeout извлекает таймаут в секундах из конфигурации.
func getTimeout(m map[string]any, key string, defaultVal time.Duration) time.Duration {
	if val, ok := m[key]; ok {
		switch v := val.(type) {
		case float64:
			if v > 0 {
				return time.Duration(v * float64(time.Second))
			}
		case int:
			if v > 0 {
				return time.Duration(v) * time.Second
			}
		}
	}
	return defaultVal
}

// toStringMap приводит map[string]any к map[string]string,
// пропуская нестроковые значения.
func toStringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for key, val := range m {
		if s, ok := val.(string); ok {
			out[key] = s
		}
	}
	return out
}
