package report

import (
	"fmt"
	"strings"
)

var requiredSections = []string{"Panel Assessment", "Transcript", "Verdict"}

// ValidateRequiredSections checks that a rendered report carries every
// mandatory section header.
func ValidateRequiredSections(content string) error {
	missing := make([]string, 0, len(requiredSections))
	for _, section := range requiredSections {
		if !strings.Contains(content, "## "+section) {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("report missing required sections: %s", strings.Join(missing, ", "))
	}
	return nil
}
