package nlp

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hitoshi/thermoculture/internal/model"
)

// predefinedTheme は定義済みテーマとその代表キーワード。
type predefinedTheme struct {
	name        string
	description string
	keywords    []string
}

// predefinedThemes は気候言説に関連する定義済みテーマ集合。
// 各テーマのキーワード列を擬似文書としてTF-IDFベクトル化し、
// 本文とのコサイン類似度で関連テーマを判定する。
var predefinedThemes = []predefinedTheme{
	{
		name:        "Energy and Heating",
		description: "Household energy costs, heating systems, and efficiency",
		keywords: []string{
			"energy", "bills", "bill", "electricity", "gas", "fuel",
			"insulation", "heat pump", "heat pumps", "boiler", "boilers",
			"heating", "solar", "panels", "power", "grid", "tariff",
			"meter", "smart meter", "fuel poverty", "efficiency", "draught",
			"cavity wall", "loft insulation", "radiator", "thermostat",
		},
	},
	{
		name:        "Extreme Weather",
		description: "Floods, storms, heatwaves, and other weather extremes",
		keywords: []string{
			"flooding", "flood", "floods", "storm", "storms", "heatwave",
			"heatwaves", "drought", "droughts", "rain", "rainfall", "snow",
			"ice", "wind", "gale", "lightning", "thunder", "cold snap",
			"freeze", "frost", "wildfire", "extreme", "hurricane", "tornado",
			"hot", "hotter", "record temperatures",
		},
	},
	{
		name:        "Transport",
		description: "Travel choices, electric vehicles, and transport emissions",
		keywords: []string{
			"electric vehicle", "electric vehicles", "ev", "evs", "cycling",
			"bicycle", "bike", "public transport", "bus", "train", "rail",
			"flight", "flights", "flying", "aviation", "car", "cars",
			"driving", "petrol", "diesel", "emissions", "commute", "commuting",
			"walking", "e-bike", "charging", "charge point", "congestion",
		},
	},
	{
		name:        "Food and Agriculture",
		description: "Farming, food supply, and dietary change",
		keywords: []string{
			"farming", "farm", "farmer", "farmers", "food", "food prices",
			"agriculture", "crop", "crops", "harvest", "growing season",
			"local food", "organic", "livestock", "meat", "dairy", "vegan",
			"vegetarian", "allotment", "garden", "soil", "fertiliser",
			"pesticide", "supply chain", "supermarket", "import",
		},
	},
	{
		name:        "Policy and Governance",
		description: "Government policy, regulation, and local authority action",
		keywords: []string{
			"net zero", "carbon tax", "regulation", "regulations", "government",
			"policy", "policies", "legislation", "parliament", "council",
			"local authority", "minister", "subsidy", "subsidies", "grant",
			"grants", "target", "targets", "mandate", "ban", "law", "act",
			"strategy", "consultation", "planning permission", "budget",
		},
	},
	{
		name:        "Mental Health and Anxiety",
		description: "Emotional wellbeing and climate-related anxiety",
		keywords: []string{
			"eco-anxiety", "eco anxiety", "climate grief", "worry", "worried",
			"anxious", "anxiety", "overwhelm", "overwhelmed", "stress",
			"stressed", "depression", "depressed", "hopeless", "hopelessness",
			"fear", "scared", "panic", "dread", "mental health", "wellbeing",
			"therapy", "cope", "coping", "burnout", "exhaustion",
		},
	},
	{
		name:        "Community Action",
		description: "Local groups, volunteering, and collective organising",
		keywords: []string{
			"local group", "local groups", "volunteering", "volunteer",
			"volunteers", "protest", "protests", "activism", "activist",
			"campaign", "campaigning", "community", "neighbourhood",
			"collective", "grassroots", "petition", "march", "rally",
			"mutual aid", "cooperative", "co-op", "organising", "engagement",
			"town hall", "citizens assembly",
		},
	},
	{
		name:        "Biodiversity",
		description: "Wildlife, habitats, and nature recovery",
		keywords: []string{
			"wildlife", "nature", "species", "habitat", "habitats",
			"biodiversity", "ecosystem", "ecosystems", "bird", "birds",
			"insect", "insects", "bee", "bees", "pollinator", "pollinators",
			"tree", "trees", "woodland", "forest", "hedgehog", "fox",
			"river", "ocean", "marine", "coral", "rewilding", "conservation",
			"endangered", "protected",
		},
	},
	{
		name:        "Housing and Buildings",
		description: "Retrofit, housing quality, and the built environment",
		keywords: []string{
			"retrofit", "retrofitting", "insulation", "planning", "planning permission",
			"green home", "green homes", "epc", "energy performance",
			"new build", "new builds", "housing", "house", "flat",
			"apartment", "building", "buildings", "construction",
			"developer", "property", "rent", "mortgage", "landlord",
			"tenant", "damp", "mould", "ventilation", "double glazing",
		},
	},
	{
		name:        "Water",
		description: "Water supply, quality, and drought management",
		keywords: []string{
			"water", "water shortage", "reservoir", "reservoirs",
			"hosepipe ban", "hosepipe bans", "water quality", "sewage",
			"river", "rivers", "stream", "groundwater", "aquifer",
			"drinking water", "tap water", "water company", "water bill",
			"drought", "dry", "rainfall", "flooding", "surface water",
			"leak", "leaks", "pipe", "infrastructure", "treatment",
		},
	},
}

// stopWords はベクトル化時に除外する高頻度の一般語。
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {},
	"at": {}, "be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {}, "can": {},
	"could": {}, "did": {}, "do": {}, "does": {}, "doing": {}, "down": {},
	"during": {}, "each": {}, "few": {}, "for": {}, "from": {}, "further": {},
	"had": {}, "has": {}, "have": {}, "having": {}, "he": {}, "her": {},
	"here": {}, "hers": {}, "him": {}, "his": {}, "how": {}, "i": {}, "if": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "itself": {},
	"just": {}, "me": {}, "more": {}, "most": {}, "my": {}, "no": {},
	"nor": {}, "not": {}, "now": {}, "of": {}, "off": {}, "on": {},
	"once": {}, "only": {}, "or": {}, "other": {}, "our": {}, "ours": {},
	"out": {}, "over": {}, "own": {}, "same": {}, "she": {}, "should": {},
	"so": {}, "some": {}, "such": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "theirs": {}, "them": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "those": {}, "through": {},
	"to": {}, "too": {}, "under": {}, "until": {}, "up": {}, "very": {},
	"was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "who": {}, "whom": {}, "why": {}, "will": {},
	"with": {}, "would": {}, "you": {}, "your": {}, "yours": {},
	"yourself": {}, "said": {}, "also": {},
}

var themeTokenPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z-]+\b`)

// relevanceThreshold 未満の類似度はノイズとして無視する。
const relevanceThreshold = 0.01

// ThemeMatcher は定義済みテーマとのコサイン類似度で本文のテーマを判定する。
type ThemeMatcher struct {
	vocab        map[string]int
	idf          []float64
	themeVectors [][]float64
	names        []string
	descriptions map[string]string
}

// NewThemeMatcher は定義済みテーマのキーワードからTF-IDFベクトルを
// 事前構築してThemeMatcherを生成する。
func NewThemeMatcher() *ThemeMatcher {
	m := &ThemeMatcher{
		vocab:        map[string]int{},
		descriptions: map[string]string{},
	}

	docs := make([][]string, len(predefinedThemes))
	for i, theme := range predefinedThemes {
		m.names = append(m.names, theme.name)
		m.descriptions[theme.name] = theme.description
		docs[i] = tokenize(strings.Join(theme.keywords, " "))
		for _, term := range docs[i] {
			if _, ok := m.vocab[term]; !ok {
				m.vocab[term] = len(m.vocab)
			}
		}
	}

	// 平滑化IDF: ln((1+N)/(1+df)) + 1
	df := make([]int, len(m.vocab))
	for _, terms := range docs {
		seen := map[int]struct{}{}
		for _, term := range terms {
			idx := m.vocab[term]
			if _, ok := seen[idx]; !ok {
				seen[idx] = struct{}{}
				df[idx]++
			}
		}
	}
	n := float64(len(docs))
	m.idf = make([]float64, len(m.vocab))
	for i, d := range df {
		m.idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	for _, terms := range docs {
		m.themeVectors = append(m.themeVectors, m.vectorize(terms))
	}
	return m
}

// Match は本文と各テーマのコサイン類似度を計算し、閾値を超えるテーマを
// 関連度降順で返す。空文字列の場合は空のリストを返す。
func (m *ThemeMatcher) Match(text string) []model.ThemeRelevance {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	vec := m.vectorize(tokenize(text))

	var results []model.ThemeRelevance
	for i, themeVec := range m.themeVectors {
		score := dot(vec, themeVec)
		if score > relevanceThreshold {
			results = append(results, model.ThemeRelevance{
				Name:      m.names[i],
				Relevance: round4(score),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	return results
}

// Description はテーマ名に対応する説明文を返す。
func (m *ThemeMatcher) Description(name string) string {
	return m.descriptions[name]
}

// vectorize はトークン列をL2正規化済みのTF-IDFベクトルに変換する。
func (m *ThemeMatcher) vectorize(terms []string) []float64 {
	vec := make([]float64, len(m.vocab))
	for _, term := range terms {
		if idx, ok := m.vocab[term]; ok {
			vec[idx]++
		}
	}

	var norm float64
	for i := range vec {
		vec[i] *= m.idf[i]
		norm += vec[i] * vec[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// tokenize は本文をユニグラムと隣接バイグラムのトークン列に変換する。
// ストップワードは除外する。
func tokenize(text string) []string {
	words := themeTokenPattern.FindAllString(strings.ToLower(text), -1)

	filtered := words[:0]
	for _, w := range words {
		if _, ok := stopWords[w]; !ok {
			filtered = append(filtered, w)
		}
	}

	tokens := make([]string, 0, len(filtered)*2)
	for i, w := range filtered {
		tokens = append(tokens, w)
		if i+1 < len(filtered) {
			tokens = append(tokens, w+" "+filtered[i+1])
		}
	}
	return tokens
}
