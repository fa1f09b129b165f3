package catalog

import (
	"fmt"
	"strings"

	"fileforge/internal/domain"
)

// Extension returns the lower-cased text after the last dot of name, or ""
// when the name has no dot.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Validate checks fileName against the entry's accepted inputs. A rejection
// is a *domain.Error of kind KindValidation.
func Validate(fileName string, entry Entry) error {
	ext := Extension(fileName)
	if entry.Accepts(ext) {
		return nil
	}
	return domain.NewError(domain.KindValidation,
		fmt.Sprintf("Unsupported format: .%s\nAccepted: %s", ext, entry.AcceptedText()))
}
