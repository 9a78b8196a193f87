package services

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"unicode"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
)

// Base canonical phrases that signal a student may be at risk.
// They are passed through CleanText once so they compare like cleaned input.
var baseSelfHarmWords = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"take my life",
	"end it all",
	"self harm",
	"cut myself",
	"hurt myself",
	"harm myself",
	"want to die",
	"wish I was dead",
	"not worth living",
	"better off dead",
	"end myself",
	"unalive",
}

var selfHarmWords = cleanAll(baseSelfHarmWords)

var (
	obfuscation = strings.NewReplacer(
		"@", "a",
		"4", "a",
		"3", "e",
		"1", "i",
		"0", "o",
		"$", "s",
		"5", "s",
		"7", "t",
		"+", "t",
		"а", "a", // Cyrillic
		"е", "e",
		"і", "i",
		"о", "o",
		"р", "p",
	)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// CleanText normalizes text to canonical form: lowercase, common look-alike
// characters mapped to letters, non-letters turned into spaces, repeated
// letters collapsed ("sooo" -> "so") and whitespace squeezed.
func CleanText(text string) string {
	cleaned := obfuscation.Replace(strings.ToLower(text))

	var builder strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	cleaned = collapseRepeats(builder.String())
	cleaned = spaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// collapseRepeats reduces runs of the same letter to one letter.
func collapseRepeats(text string) string {
	var result strings.Builder
	lastChar := rune(0)
	lastWasLetter := false

	for _, char := range text {
		isLetter := unicode.IsLetter(char)
		if isLetter && lastWasLetter && char == lastChar {
			continue
		}
		result.WriteRune(char)
		lastChar = char
		lastWasLetter = isLetter
	}
	return result.String()
}

func cleanAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = CleanText(w)
	}
	return out
}

// ContainsConfirmedWord checks if cleaned text contains any of the canonical words.
// Words and phrases only match on word boundaries: "skill" is not "kill" and
// "send it all" is not "end it all".
func ContainsConfirmedWord(cleanedText string, baseWords []string) (bool, []string) {
	var confirmed []string
	padded := " " + cleanedText + " "

	for _, baseWord := range baseWords {
		if baseWord == "" {
			continue
		}
		if strings.Contains(padded, " "+baseWord+" ") {
			confirmed = append(confirmed, baseWord)
		}
	}
	return len(confirmed) > 0, confirmed
}

// DetectSelfHarm reports whether message matches the self-harm dictionary.
func DetectSelfHarm(message string) (bool, []string) {
	return ContainsConfirmedWord(CleanText(message), selfHarmWords)
}

// PostgresSafetyLog records self-harm signals for counselor follow-up.
type PostgresSafetyLog struct {
	db *sql.DB
}

func NewPostgresSafetyLog(db *sql.DB) *PostgresSafetyLog {
	return &PostgresSafetyLog{db: db}
}

func (l *PostgresSafetyLog) Record(ctx context.Context, event models.SafetyEvent) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO safety_events (user_id, source, matched)
		VALUES ($1, $2, $3)
	`, event.UserID, event.Source, strings.Join(event.Matched, ", "))
	return err
}
