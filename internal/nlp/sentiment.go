// Package nlp は言説サンプルの感情分析・分類・テーマ抽出を提供する。
package nlp

import (
	"math"
	"regexp"
	"strings"

	"github.com/hitoshi/thermoculture/internal/model"
)

// baseLexicon は一般語の感情価。-4から+4のスケール。
var baseLexicon = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 2.7, "happy": 2.7,
	"hope": 1.9, "love": 3.2, "positive": 2.6, "benefit": 2.0,
	"benefits": 2.0, "improve": 1.9, "improved": 2.1, "improving": 2.0,
	"success": 2.7, "successful": 2.7, "win": 2.8, "better": 1.9,
	"best": 3.2, "amazing": 2.8, "wonderful": 2.7, "support": 1.7,
	"help": 1.7, "helpful": 1.8, "safe": 1.9, "clean": 1.7,
	"thrive": 2.2, "protect": 1.6, "opportunity": 1.8, "welcome": 1.9,
	"effective": 1.9, "encouraging": 2.1, "optimistic": 2.2,

	"bad": -2.5, "terrible": -3.1, "awful": -3.0, "horrible": -3.0,
	"worried": -1.8, "worry": -1.6, "worrying": -1.8, "fear": -2.2,
	"afraid": -2.2, "scared": -2.2, "sad": -2.1, "angry": -2.3,
	"anger": -2.2, "hate": -2.7, "worst": -3.1, "worse": -2.1,
	"danger": -2.4, "dangerous": -2.4, "threat": -2.1, "threatens": -2.0,
	"threatened": -2.0, "destroy": -2.7, "destroyed": -2.6, "destruction": -2.7,
	"death": -2.9, "deaths": -2.9, "die": -2.9, "died": -2.9,
	"kill": -3.0, "killed": -3.0, "loss": -1.9, "losses": -1.9,
	"lose": -1.7, "lost": -1.6, "fail": -2.3, "failed": -2.3,
	"failure": -2.5, "crisis": -2.3, "disaster": -3.1, "problem": -1.7,
	"problems": -1.7, "risk": -1.5, "risks": -1.5, "severe": -1.8,
	"warning": -1.4, "emergency": -2.2, "damage": -2.2, "damaged": -2.2,
	"suffering": -2.4, "struggle": -1.9, "struggling": -1.9,
}

// climateNegativeLexicon は気候関連の否定的な語句ごとの補正値。
// 合成スコアに加算される。
var climateNegativeLexicon = map[string]float64{
	"flooding":            -0.15,
	"flood":               -0.15,
	"floods":              -0.15,
	"disaster":            -0.20,
	"disasters":           -0.20,
	"crisis":              -0.15,
	"crises":              -0.15,
	"catastrophe":         -0.20,
	"catastrophic":        -0.20,
	"devastation":         -0.20,
	"devastated":          -0.18,
	"heatwave":            -0.12,
	"heatwaves":           -0.12,
	"drought":             -0.15,
	"droughts":            -0.15,
	"wildfire":            -0.15,
	"wildfires":           -0.15,
	"extinction":          -0.20,
	"collapse":            -0.18,
	"irreversible":        -0.15,
	"tipping point":       -0.15,
	"sea level rise":      -0.12,
	"toxic":               -0.12,
	"pollution":           -0.12,
	"polluted":            -0.12,
	"contaminated":        -0.14,
	"deforestation":       -0.14,
	"emission":            -0.08,
	"emissions":           -0.08,
	"carbon footprint":    -0.06,
	"ocean acidification": -0.14,
	"melting":             -0.10,
	"eroding":             -0.10,
	"erosion":             -0.10,
	"displacement":        -0.12,
	"famine":              -0.18,
	"starvation":          -0.18,
	"uninhabitable":       -0.18,
}

// climatePositiveLexicon は気候関連の肯定的な語句ごとの補正値。
var climatePositiveLexicon = map[string]float64{
	"renewable":         0.12,
	"renewables":        0.12,
	"solution":          0.12,
	"solutions":         0.12,
	"community action":  0.15,
	"sustainability":    0.12,
	"sustainable":       0.12,
	"green energy":      0.14,
	"clean energy":      0.14,
	"solar power":       0.12,
	"solar panels":      0.12,
	"wind power":        0.12,
	"wind farm":         0.12,
	"heat pump":         0.10,
	"heat pumps":        0.10,
	"insulation":        0.08,
	"retrofit":          0.08,
	"electric vehicle":  0.10,
	"electric vehicles": 0.10,
	"net zero":          0.10,
	"carbon neutral":    0.12,
	"biodiversity":      0.08,
	"rewilding":         0.12,
	"reforestation":     0.14,
	"restoration":       0.10,
	"adaptation":        0.08,
	"resilience":        0.10,
	"resilient":         0.10,
	"regenerative":      0.12,
	"recycling":         0.08,
	"composting":        0.08,
	"conservation":      0.10,
	"transition":        0.06,
	"innovation":        0.10,
	"breakthrough":      0.12,
	"progress":          0.10,
	"community energy":  0.14,
	"local food":        0.08,
	"volunteering":      0.10,
	"collective action": 0.14,
	"activism":          0.06,
	"empowered":         0.10,
	"hopeful":           0.10,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "nothing": {}, "neither": {},
	"nor": {}, "cannot": {}, "can't": {}, "don't": {}, "doesn't": {},
	"didn't": {}, "isn't": {}, "aren't": {}, "wasn't": {}, "weren't": {},
	"won't": {}, "wouldn't": {}, "shouldn't": {}, "couldn't": {},
}

var intensifiers = map[string]float64{
	"very": 0.293, "really": 0.293, "extremely": 0.293,
	"absolutely": 0.293, "incredibly": 0.293,
	"slightly": -0.293, "somewhat": -0.293, "barely": -0.293,
}

var wordPattern = regexp.MustCompile(`[a-z][a-z'-]*`)

// climateTerm は長さ降順で評価する補正語句。
type climateTerm struct {
	pattern  *regexp.Regexp
	modifier float64
}

// SentimentAnalyzer は一般語の感情価と気候特化の語句補正を組み合わせて
// 本文の感情スコアを算出する。
type SentimentAnalyzer struct {
	terms []climateTerm
}

// NewSentimentAnalyzer はSentimentAnalyzerを生成する。
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{terms: compileClimateTerms()}
}

func compileClimateTerms() []climateTerm {
	type entry struct {
		term     string
		modifier float64
	}
	var entries []entry
	for term, mod := range climateNegativeLexicon {
		entries = append(entries, entry{term, mod})
	}
	for term, mod := range climatePositiveLexicon {
		entries = append(entries, entry{term, mod})
	}

	// 複数語の語句が個々の単語で二重計上されないよう長い語句から評価する
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if len(b.term) > len(a.term) || (len(b.term) == len(a.term) && b.term < a.term) {
				entries[i], entries[j] = b, a
			}
		}
	}

	terms := make([]climateTerm, 0, len(entries))
	for _, e := range entries {
		var pat *regexp.Regexp
		if strings.Contains(e.term, " ") {
			pat = regexp.MustCompile(regexp.QuoteMeta(e.term))
		} else {
			pat = regexp.MustCompile(`\b` + regexp.QuoteMeta(e.term) + `\b`)
		}
		terms = append(terms, climateTerm{pattern: pat, modifier: e.modifier})
	}
	return terms
}

// Analyze は本文の感情スコア・ラベル・確信度を返す。
// 空文字列の場合はスコア0のNEUTRAL、確信度0.3を返す。
func (a *SentimentAnalyzer) Analyze(text string) (float64, model.SentimentLabel, float64) {
	if strings.TrimSpace(text) == "" {
		return 0, model.SentimentNeutral, 0.3
	}

	compound, pos, neg, neu := a.baseScores(text)
	adjustment := a.climateAdjustment(text)

	adjusted := compound + adjustment
	adjusted = math.Max(-1, math.Min(1, adjusted))
	adjusted = round4(adjusted)

	confidence := a.confidence(compound, pos, neg, neu, adjustment)

	return adjusted, labelFromScore(adjusted), confidence
}

// baseScores はトークンごとの感情価を集計して合成スコアと
// 肯定/否定/中立トークンの比率を返す。
func (a *SentimentAnalyzer) baseScores(text string) (compound, pos, neg, neu float64) {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return 0, 0, 0, 1
	}

	var sum float64
	var posCount, negCount int

	for i, token := range tokens {
		valence, ok := baseLexicon[token]
		if !ok {
			continue
		}

		if i > 0 {
			if boost, ok := intensifiers[tokens[i-1]]; ok {
				if valence > 0 {
					valence += boost
				} else {
					valence -= boost
				}
			}
			prev := tokens[i-1]
			if i > 1 {
				if _, ok := negations[tokens[i-2]]; ok {
					prev = tokens[i-2]
				}
			}
			if _, ok := negations[prev]; ok {
				valence *= -0.74
			}
		}

		sum += valence
		if valence > 0 {
			posCount++
		} else if valence < 0 {
			negCount++
		}
	}

	// 合計を[-1, 1]に正規化する
	compound = sum / math.Sqrt(sum*sum+15)

	total := float64(len(tokens))
	pos = float64(posCount) / total
	neg = float64(negCount) / total
	neu = float64(len(tokens)-posCount-negCount) / total
	return compound, pos, neg, neu
}

// climateAdjustment は気候特化語句の補正値を集計する。
// マッチした語句は以降の照合から除外し、合計は±0.5に制限する。
func (a *SentimentAnalyzer) climateAdjustment(text string) float64 {
	working := strings.ToLower(text)
	var adjustment float64

	for _, term := range a.terms {
		matches := term.pattern.FindAllStringIndex(working, -1)
		if len(matches) == 0 {
			continue
		}
		adjustment += term.modifier * float64(len(matches))

		blanked := []byte(working)
		for _, m := range matches {
			for i := m[0]; i < m[1]; i++ {
				blanked[i] = ' '
			}
		}
		working = string(blanked)
	}

	return math.Max(-0.5, math.Min(0.5, adjustment))
}

// confidence は0.3から1.0の確信度を導出する。
// 極性が強く、気候補正の符号が一致するほど高くなる。
func (a *SentimentAnalyzer) confidence(compound, pos, neg, neu, adjustment float64) float64 {
	polarityStrength := math.Abs(compound)

	agreement := 0.9
	if compound != 0 && adjustment != 0 {
		if (compound > 0) == (adjustment > 0) {
			agreement = 1.0
		} else {
			agreement = 0.8
		}
	}

	neutralPenalty := 1.0 - neu*0.3

	raw := polarityStrength * agreement * neutralPenalty
	return round4(math.Max(0.3, math.Min(1.0, raw+0.3)))
}

func labelFromScore(score float64) model.SentimentLabel {
	switch {
	case score < -0.6:
		return model.SentimentVeryNegative
	case score < -0.2:
		return model.SentimentNegative
	case score <= 0.2:
		return model.SentimentNeutral
	case score <= 0.6:
		return model.SentimentPositive
	default:
		return model.SentimentVeryPositive
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
