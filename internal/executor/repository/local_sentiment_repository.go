package repository

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"sync"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"

	"gopkg.in/yaml.v3"
)

//go:embed sentiment_lexicon.yaml
var defaultLexicon []byte

const defaultMaxTokens = 512

var tokenPattern = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

type lexiconModel struct {
	Name           string             `yaml:"name"`
	NeutralBias    float64            `yaml:"neutral_bias"`
	NegationWindow int                `yaml:"negation_window"`
	Negations      []string           `yaml:"negations"`
	Positive       map[string]float64 `yaml:"positive"`
	Negative       map[string]float64 `yaml:"negative"`

	negations map[string]struct{}
}

// localSentimentRepository classifies text in-process with a weighted
// financial lexicon. The model loads on first use; a load failure is kept
// and returned on every later call.
type localSentimentRepository struct {
	modelPath string
	modelName string
	maxTokens int
	logger    *logger.Logger

	loadOnce sync.Once
	model    *lexiconModel
	loadErr  error

	// inference is one shared resource
	mu sync.Mutex
}

// NewLocalSentimentRepository creates the in-process sentiment provider.
func NewLocalSentimentRepository(cfg config.Local, log *logger.Logger) SentimentRepository {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &localSentimentRepository{
		modelPath: cfg.ModelPath,
		modelName: cfg.ModelName,
		maxTokens: maxTokens,
		logger:    log,
	}
}

func (r *localSentimentRepository) Provider() dto.SentimentProvider {
	return dto.ProviderLocal
}

// ModelName is the loaded artifact's name, or the configured name before the first load.
func (r *localSentimentRepository) ModelName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		return r.model.Name
	}
	return r.modelName
}

func (r *localSentimentRepository) IsConfigured() bool {
	if r.modelPath == "" {
		return true
	}
	_, err := os.Stat(r.modelPath)
	return err == nil
}

func (r *localSentimentRepository) load() {
	r.logger.Info("Loading local sentiment model", logger.StringField("path", r.modelPath))

	raw := defaultLexicon
	if r.modelPath != "" {
		b, err := os.ReadFile(r.modelPath)
		if err != nil {
			r.loadErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			return
		}
		raw = b
	}

	var model lexiconModel
	if err := yaml.Unmarshal(raw, &model); err != nil {
		r.loadErr = fmt.Errorf("%w: failed to decode model: %v", ErrModelUnavailable, err)
		return
	}
	if len(model.Positive) == 0 && len(model.Negative) == 0 {
		r.loadErr = fmt.Errorf("%w: model has no terms", ErrModelUnavailable)
		return
	}

	model.negations = make(map[string]struct{}, len(model.Negations))
	for _, n := range model.Negations {
		model.negations[strings.ToLower(n)] = struct{}{}
	}
	if model.Name == "" {
		model.Name = r.modelName
	}
	r.mu.Lock()
	r.model = &model
	r.mu.Unlock()
	r.logger.Info("Local sentiment model loaded", logger.StringField("model", model.Name))
}

func (r *localSentimentRepository) Analyze(ctx context.Context, text string) (*dto.SentimentResult, error) {
	r.loadOnce.Do(r.load)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	probs := r.model.classify(text, r.maxTokens)
	labels := []dto.SentimentLabel{dto.SentimentPositive, dto.SentimentNegative, dto.SentimentNeutral}

	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return dto.NewSentimentResult(labels[best], probs[best], dto.ProviderLocal, r.model.Name), nil
}

// classify returns softmax probabilities for positive, negative and neutral.
func (m *lexiconModel) classify(text string, maxTokens int) [3]float64 {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	var pos, neg float64
	negatedUntil := -1
	for i, token := range tokens {
		if _, ok := m.negations[token]; ok {
			negatedUntil = i + m.NegationWindow
			continue
		}
		negated := i <= negatedUntil
		if w, ok := m.Positive[token]; ok {
			if negated {
				neg += w
			} else {
				pos += w
			}
		}
		if w, ok := m.Negative[token]; ok {
			if negated {
				pos += w
			} else {
				neg += w
			}
		}
	}

	return softmax(pos, neg, m.NeutralBias)
}

func softmax(logits ...float64) [3]float64 {
	var out [3]float64
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}
	var sum float64
	for i, l := range logits[:3] {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
