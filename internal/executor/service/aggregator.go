package service

import (
	"sort"

	"golang-stock-suggester/internal/executor/dto"
)

const maxRepresentativeArticles = 3

type stockAggregate struct {
	code     string
	order    int
	sum      float64
	articles []dto.ProcessedArticle
}

// Aggregate groups processed articles by stock code and returns the ranked
// suggestions whose mean sentiment is at least opts.MinScore.
// Ranking is by mean then article count, both descending; remaining ties keep
// the order in which codes were first seen. The output is deterministic for a
// given input.
func Aggregate(processed []dto.ProcessedArticle, opts dto.AggregateOptions) []dto.Suggestion {
	groups := make(map[string]*stockAggregate)
	var ordered []*stockAggregate
	counted := make(map[string]map[uint]struct{})

	for _, article := range processed {
		for _, code := range article.Mentions {
			if code == "" {
				continue
			}
			group, ok := groups[code]
			if !ok {
				group = &stockAggregate{code: code, order: len(ordered)}
				groups[code] = group
				ordered = append(ordered, group)
				counted[code] = make(map[uint]struct{})
			}
			if _, dup := counted[code][article.ArticleID]; dup {
				continue
			}
			counted[code][article.ArticleID] = struct{}{}
			group.sum += article.SentimentScore
			group.articles = append(group.articles, article)
		}
	}

	type ranked struct {
		group *stockAggregate
		mean  float64
	}
	var survivors []ranked
	for _, group := range ordered {
		if len(group.articles) == 0 {
			continue
		}
		mean := group.sum / float64(len(group.articles))
		if mean < opts.MinScore {
			continue
		}
		survivors = append(survivors, ranked{group: group, mean: mean})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.mean != b.mean {
			return a.mean > b.mean
		}
		if len(a.group.articles) != len(b.group.articles) {
			return len(a.group.articles) > len(b.group.articles)
		}
		return a.group.order < b.group.order
	})

	if opts.MaxSuggestions > 0 && len(survivors) > opts.MaxSuggestions {
		survivors = survivors[:opts.MaxSuggestions]
	}

	suggestions := make([]dto.Suggestion, 0, len(survivors))
	for _, s := range survivors {
		name := s.group.code
		if opts.Names != nil {
			if n := opts.Names(s.group.code); n != "" {
				name = n
			}
		}

		ids := make([]uint, 0, len(s.group.articles))
		for _, a := range s.group.articles {
			ids = append(ids, a.ArticleID)
		}

		suggestions = append(suggestions, dto.Suggestion{
			StockCode:         s.group.code,
			StockName:         name,
			AvgSentimentScore: s.mean,
			ArticleCount:      len(s.group.articles),
			RelatedNewsIDs:    ids,
			Articles:          representativeArticles(s.group.articles),
		})
	}
	return suggestions
}

func representativeArticles(articles []dto.ProcessedArticle) []dto.RepresentativeArticle {
	top := make([]dto.ProcessedArticle, len(articles))
	copy(top, articles)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].SentimentScore > top[j].SentimentScore
	})
	if len(top) > maxRepresentativeArticles {
		top = top[:maxRepresentativeArticles]
	}

	out := make([]dto.RepresentativeArticle, 0, len(top))
	for _, a := range top {
		out = append(out, dto.RepresentativeArticle{
			Title:          a.Title,
			URL:            a.URL,
			Source:         a.Source,
			SentimentScore: a.SentimentScore,
			SentimentLabel: a.SentimentLabel,
		})
	}
	return out
}
