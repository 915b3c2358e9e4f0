package payments

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TitleMaxLen is the longest customization title the gateway accepts.
const TitleMaxLen = 16

var (
	descriptionDisallowed = regexp.MustCompile(`[^A-Za-z0-9\-_ ]`)
	whitespaceRun         = regexp.MustCompile(`\s+`)
)

// SplitName splits a display name on its first space. Empty parts fall back
// to "Customer" and "User".
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		first = "Customer"
	}
	if last == "" {
		last = "User"
	}
	return first, last
}

// TruncateTitle cuts s to at most TitleMaxLen runes.
func TruncateTitle(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= TitleMaxLen {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:TitleMaxLen]))
}

// SanitizeDescription keeps letters, digits, hyphen, underscore and space,
// and collapses whitespace runs to one space.
func SanitizeDescription(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = descriptionDisallowed.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// RoundAmount rounds a decimal price to the integer currency unit.
func RoundAmount(price float64) int64 {
	return int64(math.Round(price))
}

func CourseTxRef(courseID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("course-%s-%d", courseID, now.UnixMilli())
}

func ExamTxRef(examID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("exam-%s-%d", examID, now.UnixMilli())
}
