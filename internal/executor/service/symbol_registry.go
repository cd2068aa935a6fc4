package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"golang-stock-suggester/pkg/logger"
)

// SymbolEntry is one known stock: its code, display name and explicit aliases.
type SymbolEntry struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// SymbolRegistry validates stock codes and resolves company-name fragments.
// It is immutable after construction.
type SymbolRegistry struct {
	entries   map[string]SymbolEntry
	fragments map[string]string
	source    string
}

type symbolFile struct {
	LastUpdated string `json:"last_updated"`
	Stocks      map[string]struct {
		Name    string   `json:"name"`
		Aliases []string `json:"aliases"`
	} `json:"stocks"`
}

const fallbackSource = "fallback"

var (
	nameWordPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

	ignoredNameWords = map[string]struct{}{
		"LTD": {}, "LIMITED": {}, "COMPANY": {}, "CORPORATION": {}, "INDUSTRIES": {}, "GROUP": {},
	}
)

// LoadSymbolRegistry reads the registry document at path. Any failure is logged
// and the built-in fallback registry is returned instead.
func LoadSymbolRegistry(path string, log *logger.Logger) *SymbolRegistry {
	registry, lastUpdated, err := readSymbolFile(path)
	if err != nil {
		log.Warn("Failed to load symbol registry, using fallback list",
			logger.ErrorField(err),
			logger.StringField("path", path))
		fallback := FallbackSymbolRegistry()
		log.Info("Using fallback symbol registry", logger.IntField("stocks", fallback.Len()))
		return fallback
	}

	log.Info("Loaded symbol registry",
		logger.StringField("path", path),
		logger.IntField("stocks", registry.Len()),
		logger.StringField("last_updated", lastUpdated))
	return registry
}

func readSymbolFile(path string) (*SymbolRegistry, string, error) {
	if path == "" {
		return nil, "", errors.New("registry path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read registry file: %w", err)
	}

	var doc symbolFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to decode registry file: %w", err)
	}
	if len(doc.Stocks) == 0 {
		return nil, "", errors.New("registry file has no stocks")
	}

	entries := make([]SymbolEntry, 0, len(doc.Stocks))
	for code, info := range doc.Stocks {
		entries = append(entries, SymbolEntry{Code: code, Name: info.Name, Aliases: info.Aliases})
	}

	lastUpdated := doc.LastUpdated
	if lastUpdated == "" {
		lastUpdated = "unknown"
	}
	return NewSymbolRegistry(entries, path), lastUpdated, nil
}

// NewSymbolRegistry builds the code and fragment lookup tables once.
// A code always resolves to itself. Explicit aliases come next, with the
// first code in sorted order winning a shared alias. Fragments taken from
// company names resolve only when exactly one code's name yields them, so a
// shared word such as "Tata" or "Motors" maps to nothing.
func NewSymbolRegistry(entries []SymbolEntry, source string) *SymbolRegistry {
	r := &SymbolRegistry{
		entries:   make(map[string]SymbolEntry, len(entries)),
		fragments: make(map[string]string),
		source:    source,
	}

	for _, e := range entries {
		code := normalizeToken(e.Code)
		if code == "" {
			continue
		}
		e.Code = code
		if e.Name == "" {
			e.Name = code
		}
		r.entries[code] = e
	}

	codes := r.Codes()
	for _, code := range codes {
		r.fragments[code] = code
	}
	for _, code := range codes {
		for _, alias := range r.entries[code].Aliases {
			r.claim(normalizeToken(alias), code)
		}
	}

	owners := make(map[string]map[string]struct{})
	for _, code := range codes {
		for _, fragment := range nameFragments(r.entries[code].Name) {
			if owners[fragment] == nil {
				owners[fragment] = make(map[string]struct{})
			}
			owners[fragment][code] = struct{}{}
		}
	}
	for fragment, claimants := range owners {
		if len(claimants) != 1 {
			continue
		}
		for code := range claimants {
			r.claim(fragment, code)
		}
	}

	return r
}

// nameFragments returns the significant capitalised words of name and, for
// multi-word names, the words joined together ("Tata Motors Ltd" gives TATA,
// MOTORS and TATAMOTORS).
func nameFragments(name string) []string {
	var words []string
	for _, word := range nameWordPattern.FindAllString(name, -1) {
		fragment := strings.ToUpper(word)
		if _, ignored := ignoredNameWords[fragment]; ignored {
			continue
		}
		words = append(words, fragment)
	}
	if len(words) > 1 {
		return append(words, strings.Join(words, ""))
	}
	return words
}

func (r *SymbolRegistry) claim(fragment, code string) {
	if fragment == "" {
		return
	}
	if _, taken := r.fragments[fragment]; !taken {
		r.fragments[fragment] = code
	}
}

// IsValidCode reports whether code is a known stock code.
func (r *SymbolRegistry) IsValidCode(code string) bool {
	_, ok := r.entries[code]
	return ok
}

// ResolveNameFragment maps an uppercased name fragment or alias to its code.
func (r *SymbolRegistry) ResolveNameFragment(fragment string) (string, bool) {
	code, ok := r.fragments[fragment]
	return code, ok
}

// Name returns the display name of code, or code itself when unknown.
func (r *SymbolRegistry) Name(code string) string {
	if e, ok := r.entries[code]; ok {
		return e.Name
	}
	return code
}

// Codes returns all known codes in sorted order.
func (r *SymbolRegistry) Codes() []string {
	codes := make([]string, 0, len(r.entries))
	for code := range r.entries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r *SymbolRegistry) Len() int {
	return len(r.entries)
}

// Source is the registry file path, or "fallback" for the built-in list.
func (r *SymbolRegistry) Source() string {
	return r.source
}

// FallbackSymbolRegistry returns the built-in list of large-cap NSE stocks.
func FallbackSymbolRegistry() *SymbolRegistry {
	return NewSymbolRegistry(fallbackSymbols, fallbackSource)
}

var fallbackSymbols = []SymbolEntry{
	{Code: "RELIANCE", Name: "Reliance Industries Ltd"},
	{Code: "TCS", Name: "Tata Consultancy Services Ltd"},
	{Code: "HDFCBANK", Name: "HDFC Bank Ltd", Aliases: []string{"HDFC"}},
	{Code: "INFY", Name: "Infosys Ltd", Aliases: []string{"INFOSYS"}},
	{Code: "ICICIBANK", Name: "ICICI Bank Ltd", Aliases: []string{"ICICI"}},
	{Code: "HINDUNILVR", Name: "Hindustan Unilever Ltd", Aliases: []string{"HUL"}},
	{Code: "ITC", Name: "ITC Ltd"},
	{Code: "SBIN", Name: "State Bank of India", Aliases: []string{"SBI", "STATEBANK"}},
	{Code: "BHARTIARTL", Name: "Bharti Airtel Ltd", Aliases: []string{"AIRTEL"}},
	{Code: "KOTAKBANK", Name: "Kotak Mahindra Bank Ltd"},
	{Code: "LT", Name: "Larsen & Toubro Ltd", Aliases: []string{"L&T"}},
	{Code: "AXISBANK", Name: "Axis Bank Ltd"},
	{Code: "ASIANPAINT", Name: "Asian Paints Ltd", Aliases: []string{"ASIANPAINTS"}},
	{Code: "MARUTI", Name: "Maruti Suzuki India Ltd"},
	{Code: "TATAMOTORS", Name: "Tata Motors Ltd"},
	{Code: "SUNPHARMA", Name: "Sun Pharmaceutical Industries Ltd"},
	{Code: "ULTRACEMCO", Name: "UltraTech Cement Ltd", Aliases: []string{"ULTRATECH"}},
	{Code: "TITAN", Name: "Titan Company Ltd"},
	{Code: "BAJFINANCE", Name: "Bajaj Finance Ltd"},
	{Code: "NESTLEIND", Name: "Nestle India Ltd"},
	{Code: "WIPRO", Name: "Wipro Ltd"},
	{Code: "HCLTECH", Name: "HCL Technologies Ltd", Aliases: []string{"HCL"}},
	{Code: "TECHM", Name: "Tech Mahindra Ltd", Aliases: []string{"TECHMAHINDRA"}},
	{Code: "POWERGRID", Name: "Power Grid Corporation of India Ltd"},
	{Code: "NTPC", Name: "NTPC Ltd"},
	{Code: "ONGC", Name: "Oil and Natural Gas Corporation Ltd"},
	{Code: "TATASTEEL", Name: "Tata Steel Ltd"},
	{Code: "ADANIPORTS", Name: "Adani Ports and Special Economic Zone Ltd"},
	{Code: "JSWSTEEL", Name: "JSW Steel Ltd", Aliases: []string{"JSW"}},
	{Code: "HINDALCO", Name: "Hindalco Industries Ltd"},
	{Code: "INDUSINDBK", Name: "IndusInd Bank Ltd", Aliases: []string{"INDUSIND"}},
	{Code: "DIVISLAB", Name: "Divi's Laboratories Ltd"},
	{Code: "BAJAJFINSV", Name: "Bajaj Finserv Ltd"},
	{Code: "DRREDDY", Name: "Dr. Reddy's Laboratories Ltd", Aliases: []string{"DR.REDDY"}},
	{Code: "EICHERMOT", Name: "Eicher Motors Ltd"},
	{Code: "CIPLA", Name: "Cipla Ltd"},
	{Code: "GODREJCP", Name: "Godrej Consumer Products Ltd"},
	{Code: "BPCL", Name: "Bharat Petroleum Corporation Ltd"},
	{Code: "GRASIM", Name: "Grasim Industries Ltd"},
	{Code: "COALINDIA", Name: "Coal India Ltd"},
	{Code: "SHREECEM", Name: "Shree Cement Ltd"},
	{Code: "VEDL", Name: "Vedanta Ltd"},
	{Code: "TATACHEM", Name: "Tata Chemicals Ltd"},
	{Code: "TATAPOWER", Name: "Tata Power Company Ltd"},
	{Code: "TATACONSUM", Name: "Tata Consumer Products Ltd"},
	{Code: "ZOMATO", Name: "Zomato Ltd"},
	{Code: "PAYTM", Name: "One 97 Communications Ltd"},
	{Code: "NYKAA", Name: "FSN E-Commerce Ventures Ltd"},
	{Code: "DMART", Name: "Avenue Supermarts Ltd"},
	{Code: "POLICYBZR", Name: "PB Fintech Ltd", Aliases: []string{"POLICYBAZAAR"}},
	{Code: "DELHIVERY", Name: "Delhivery Ltd"},
}
