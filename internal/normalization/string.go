package normalization

import (
  "strings"
)

func ParseInputString(input string) string {
  normalized := strings.ToLower(strings.TrimSpace(input))
  return normalized
}

// CollapseSpaces trims and squeezes internal whitespace without changing
// case. Student and class names keep their original casing.
func CollapseSpaces(input string) string {
  return strings.Join(strings.Fields(input), " ")
}
