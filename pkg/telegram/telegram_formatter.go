package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/utils"
)

// MaxMessageLength keeps messages under the Telegram limit of 4096 characters.
const MaxMessageLength = 4090

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes the characters legacy Markdown treats as entities.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// SplitMessages packs entries into messages no longer than maxLen. header
// returns the heading of each part, counted from 1. A single entry longer than
// maxLen is truncated.
func SplitMessages(header func(part int) string, entries []string, maxLen int) []string {
	var messages []string
	var current strings.Builder
	part := 1

	startNewPart := func() {
		current.Reset()
		current.WriteString(header(part))
	}
	startNewPart()

	written := 0
	for _, entry := range entries {
		if room := maxLen - max(len(header(part)), len(header(part+1))); len(entry) > room {
			entry = truncateBytes(entry, room)
		}
		if written > 0 && current.Len()+len(entry) > maxLen {
			messages = append(messages, current.String())
			part++
			startNewPart()
			written = 0
		}
		current.WriteString(entry)
		written++
	}

	return append(messages, current.String())
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// FormatSuggestions formats a ranked suggestion list into one or more Markdown messages.
func FormatSuggestions(title string, suggestions []dto.Suggestion) []string {
	if len(suggestions) == 0 {
		return []string{fmt.Sprintf("*%s*\n\nNo stocks met the criteria.", title)}
	}

	header := func(part int) string {
		if part == 1 {
			h := fmt.Sprintf("📊 *%s* 📊\n", title)
			if !suggestions[0].SuggestedFor.IsZero() {
				h += fmt.Sprintf("_%s_\n", utils.PrettyDate(suggestions[0].SuggestedFor))
			}
			return h + "\n"
		}
		return fmt.Sprintf("---*%s (part %d)*---\n\n", title, part)
	}

	entries := make([]string, 0, len(suggestions))
	for i, s := range suggestions {
		entries = append(entries, formatSuggestion(i+1, s))
	}
	return SplitMessages(header, entries, MaxMessageLength)
}

func formatSuggestion(rank int, s dto.Suggestion) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d. 📈 *%s*", rank, s.StockCode))
	if s.StockName != "" && s.StockName != s.StockCode {
		b.WriteString(fmt.Sprintf(" - %s", EscapeMarkdown(s.StockName)))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s *Sentiment:* %.2f from %d article(s)\n", sentimentIcon(s.AvgSentimentScore), s.AvgSentimentScore, s.ArticleCount))
	for _, a := range s.Articles {
		b.WriteString(fmt.Sprintf("  • [%s](%s) _(%s, %.2f)_\n", EscapeMarkdown(utils.Truncate(a.Title, 120)), a.URL, EscapeMarkdown(a.Source), a.SentimentScore))
	}
	b.WriteString("\n")
	return b.String()
}

func sentimentIcon(score float64) string {
	switch {
	case score >= 0.7:
		return "🟢"
	case score >= 0.5:
		return "🟡"
	default:
		return "🔴"
	}
}

// FormatBatchEvent formats a finished run. Each outcome has its own wording so
// an empty result is never ambiguous.
func FormatBatchEvent(event dto.BatchCompletedEvent) []string {
	switch event.Outcome {
	case dto.OutcomeCompleted:
		return FormatSuggestions("Stock Suggestions", event.Suggestions)
	case dto.OutcomeNoSuggestions:
		return []string{"📭 *Analysis complete*\n\nNo stocks met the criteria this time."}
	case dto.OutcomeNoArticles:
		return []string{"📰 *Analysis skipped*\n\nNo news articles were fetched. Check the news sources."}
	default:
		msg := "⚠️ *Analysis failed*"
		if event.Error != "" {
			msg += "\n\n`" + strings.ReplaceAll(utils.Truncate(event.Error, 500), "`", "'") + "`"
		}
		return []string{msg}
	}
}

// FormatRunResult formats the result of an on-demand run.
func FormatRunResult(result *dto.RunResult) []string {
	return FormatBatchEvent(dto.BatchCompletedEvent{
		BatchID:          result.BatchID,
		Trigger:          result.Trigger,
		Outcome:          result.Outcome,
		SuggestionsCount: len(result.Suggestions),
		Suggestions:      result.Suggestions,
		Error:            result.Error,
		CompletedAt:      result.CompletedAt,
	})
}
