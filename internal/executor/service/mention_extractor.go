package service

import (
	"bufio"
	_ "embed"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

//go:embed false_positives.txt
var defaultFalsePositives string

// MentionExtractor finds the validated stock codes a text talks about.
type MentionExtractor interface {
	Extract(text string) []string
}

var candidatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)NSE:\s*([A-Z][A-Z0-9]{1,15})\b`),
	regexp.MustCompile(`(?i)BSE:\s*([A-Z][A-Z0-9]{1,15})\b`),
	regexp.MustCompile(`(?i)\b([A-Z][A-Z0-9]{2,15})\s+(?:stock|shares|share|equity|scrip|Ltd|Limited)\b`),
	regexp.MustCompile(`(?i)\b(?:stock|shares|share)\s+(?:of\s+)?([A-Z][A-Z0-9]{2,15})\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+\s+[A-Z][a-z]+)\s+(?i:stock|shares|share|equity)\b`),
	regexp.MustCompile(`(?i)\b(Reliance|TCS|Infosys|HDFC|ICICI|Tata|Adani|Wipro|HCL|Maruti|Bharti|Airtel|Bajaj|Titan|Kotak|Axis|Asian\s+Paints?|ITC|SBI|State\s+Bank|L&T|Larsen|Toubro|Sun\s+Pharma|Nestle|Tech\s+Mahindra|Ultratech|JSW|Hindalco|IndusInd|Dr\.?\s*Reddy|Eicher|Cipla|Godrej|BPCL|Vedanta|Zomato|Paytm|Nykaa|DMart|Delhivery)\b`),
}

const (
	minCandidateLen = 2
	maxCandidateLen = 20
)

// NewMentionExtractor creates an extractor validating against registry with
// the built-in false-positive list.
func NewMentionExtractor(registry *SymbolRegistry) MentionExtractor {
	return NewMentionExtractorWithFalsePositives(registry, ParseFalsePositives(defaultFalsePositives))
}

// NewMentionExtractorWithFalsePositives creates an extractor with a custom false-positive set.
func NewMentionExtractorWithFalsePositives(registry *SymbolRegistry, falsePositives map[string]struct{}) MentionExtractor {
	return &mentionExtractor{
		registry:       registry,
		falsePositives: falsePositives,
	}
}

type mentionExtractor struct {
	registry       *SymbolRegistry
	falsePositives map[string]struct{}
}

// ParseFalsePositives reads whitespace separated tokens; '#' starts a comment.
func ParseFalsePositives(doc string) map[string]struct{} {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(doc))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, token := range strings.Fields(line) {
			set[strings.ToUpper(token)] = struct{}{}
		}
	}
	return set
}

// Extract returns the sorted, de-duplicated codes mentioned in text.
func (e *mentionExtractor) Extract(text string) []string {
	if e.registry == nil || e.registry.Len() == 0 || text == "" {
		return []string{}
	}

	candidates := e.collectCandidates(text)

	found := make(map[string]struct{})
	for _, candidate := range candidates {
		if code, ok := e.validate(candidate); ok {
			found[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(found))
	for code := range found {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (e *mentionExtractor) collectCandidates(text string) []string {
	seen := make(map[string]struct{})
	var candidates []string
	for _, pattern := range candidatePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			token := normalizeToken(match[1])
			if !e.acceptable(token) {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			candidates = append(candidates, token)
		}
	}
	return candidates
}

func (e *mentionExtractor) acceptable(token string) bool {
	if len(token) < minCandidateLen || len(token) > maxCandidateLen {
		return false
	}
	if isAllDigits(token) {
		return false
	}
	_, rejected := e.falsePositives[token]
	return !rejected
}

// validate accepts known codes and resolvable name fragments. A token seen next
// to a stock keyword still has to be a known code, so context never widens the
// accepted set beyond the registry.
func (e *mentionExtractor) validate(token string) (string, bool) {
	if e.registry.IsValidCode(token) {
		return token, true
	}
	if code, ok := e.registry.ResolveNameFragment(token); ok {
		return code, true
	}
	return "", false
}

// normalizeToken uppercases s and removes all whitespace.
func normalizeToken(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
