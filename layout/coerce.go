package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToInt converts v to an int. In strict mode only integer kinds, integral
// floats and strings holding a plain integer are accepted. Otherwise the
// conversion falls back to a cast: floats are truncated, strings contribute
// their leading integer prefix (or 0), bools become 1 or 0 and nil becomes 0.
func ToInt(v any, strict bool) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float32:
		return floatToInt(float64(n), strict)
	case float64:
		return floatToInt(n, strict)
	case string:
		s := strings.TrimSpace(n)
		i, err := strconv.Atoi(s)
		if err == nil {
			return i, nil
		}
		if strict {
			return 0, fmt.Errorf("%w: %q 不是整数", ErrInvalidInput, n)
		}
		return leadingInt(s), nil
	case bool:
		if strict {
			return 0, fmt.Errorf("%w: 布尔值不能作为整数", ErrInvalidInput)
		}
		if n {
			return 1, nil
		}
		return 0, nil
	case nil:
		if strict {
			return 0, fmt.Errorf("%w: 缺少数值", ErrInvalidInput)
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: 不支持的数值类型 %T", ErrInvalidInput, v)
	}
}

func floatToInt(f float64, strict bool) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v 不是有限数", ErrInvalidInput, f)
	}
	if strict && f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v 不是整数", ErrInvalidInput, f)
	}
	return int(f), nil
}

// leadingInt parses an optional sign followed by digits, e.g. "12px" -> 12.
func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	i, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return i
}
