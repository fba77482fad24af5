package validators

import (
	"fmt"
	"strings"
)

// MaskString hides all but the last four characters of a sensitive value.
func MaskString(value string) string {
	if len(value) < 4 {
		return "************"
	}
	maskLength := len(value) - 4
	mask := strings.Repeat("*", maskLength)
	return fmt.Sprintf("%s%s", mask, value[len(value)-4:])
}
