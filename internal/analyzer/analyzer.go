package analyzer

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Analyzer implements interfaces.ContentAnalyzer with the deterministic,
// rule-based extraction described for judicial-auction documents: dates,
// monetary figures, CPC art. 889 notification compliance, liens, and
// occupancy status, each surfaced as an ordered AnalysisPoint.
type Analyzer struct {
	logger arbor.ILogger
}

var _ interfaces.ContentAnalyzer = (*Analyzer)(nil)

func New(logger arbor.ILogger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze runs every pattern/keyword pass over text and assembles entities,
// keywords, financial figures, and the ordered category-grouped points.
func (a *Analyzer) Analyze(ctx context.Context, jobID string, text string, pageOffsets []int) (*models.TextAnalysis, error) {
	lower := strings.ToLower(text)

	analysis := &models.TextAnalysis{
		JobID:              jobID,
		BusinessIndicators: make(map[string]float64),
		FinancialData:      make(map[string]float64),
	}

	a.collectEntities(text, pageOffsets, analysis)
	a.collectKeywords(lower, analysis)
	a.collectFinancials(text, analysis)

	var points []models.AnalysisPoint
	points = append(points, a.auctionPoints(lower, text, pageOffsets)...)
	points = append(points, a.notificationPoints(lower, text, pageOffsets)...)
	points = append(points, a.financialPoints(text, pageOffsets, analysis)...)
	points = append(points, a.occupancyPoints(lower, text, pageOffsets)...)
	points = append(points, a.riskPoints(lower)...)

	for i := range points {
		// A point that already carries a stable, semantic id (e.g.
		// cpc_889_compliance) keeps it; only the rest get a positional one.
		if points[i].ID == "" {
			points[i].ID = jobID + "-" + strconv.Itoa(i)
		}
	}
	analysis.Points = orderByCategory(points)

	return analysis, nil
}

var categoryOrder = []models.AnalysisCategory{
	models.CategoryLeilao,
	models.CategoryPrazo,
	models.CategoryFinanceiro,
	models.CategoryInvestimento,
	models.CategoryContato,
	models.CategoryGeral,
}

func orderByCategory(points []models.AnalysisPoint) []models.AnalysisPoint {
	ordered := make([]models.AnalysisPoint, 0, len(points))
	for _, cat := range categoryOrder {
		for _, p := range points {
			if p.Category == cat {
				ordered = append(ordered, p)
			}
		}
	}
	return ordered
}

// pageForOffset maps a byte offset into text to its 1-indexed source page,
// using pageOffsets (the byte offset where each page's text begins,
// pageOffsets[0] == 0). Returns 0 (unknown) if pageOffsets is empty.
func pageForOffset(offset int, pageOffsets []int) int {
	if len(pageOffsets) == 0 {
		return 0
	}
	page := 1
	for i, o := range pageOffsets {
		if offset >= o {
			page = i + 1
		} else {
			break
		}
	}
	return page
}

func ptrInt(v int) *int { return &v }

func (a *Analyzer) collectEntities(text string, pageOffsets []int, analysis *models.TextAnalysis) {
	add := func(t models.EntityType, matches [][]int) {
		for _, m := range matches {
			analysis.Entities = append(analysis.Entities, models.Entity{
				Type:  t,
				Value: text[m[0]:m[1]],
				Page:  pageForOffset(m[0], pageOffsets),
			})
		}
	}
	add(models.EntityMoney, patternMonetary.FindAllStringIndex(text, -1))
	add(models.EntityCNPJ, patternCNPJ.FindAllStringIndex(text, -1))
	add(models.EntityCPF, patternCPF.FindAllStringIndex(text, -1))
	add(models.EntityPhone, patternPhone.FindAllStringIndex(text, -1))
	add(models.EntityEmail, patternEmail.FindAllStringIndex(text, -1))
	add(models.EntityProcessNumber, patternProcessNumber.FindAllStringIndex(text, -1))
}

func (a *Analyzer) collectKeywords(lower string, analysis *models.TextAnalysis) {
	seen := make(map[string]bool)
	for _, list := range auctionTypeKeywords {
		for _, kw := range list {
			if strings.Contains(lower, kw) && !seen[kw] {
				seen[kw] = true
				analysis.Keywords = append(analysis.Keywords, kw)
			}
		}
	}
	for _, list := range riskKeywords {
		for _, kw := range list {
			if strings.Contains(lower, kw) && !seen[kw] {
				seen[kw] = true
				analysis.Keywords = append(analysis.Keywords, kw)
			}
		}
	}
}

func (a *Analyzer) collectFinancials(text string, analysis *models.TextAnalysis) {
	record := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, ok := parseBRL(m[1]); ok {
				analysis.FinancialData[key] = v
			}
		}
	}
	record("evaluation_value", patternEvaluation)
	record("minimum_bid", patternMinimumBid)
	record("iptu_debt", patternIPTU)
	record("condominium_debt", patternCondominium)
}

func (a *Analyzer) auctionPoints(lower, text string, pageOffsets []int) []models.AnalysisPoint {
	var points []models.AnalysisPoint
	if loc := patternAuctionDate.FindStringSubmatchIndex(text); loc != nil {
		page := pageForOffset(loc[0], pageOffsets)
		points = append(points, models.AnalysisPoint{
			Title:    "Data do leilão identificada",
			Comment:  "Data de leilão/hasta/praça encontrada no documento.",
			Status:   models.StatusConfirmado,
			Category: models.CategoryLeilao,
			Priority: models.PriorityHigh,
			Page:     ptrInt(page),
			RawMatch: text[loc[2]:loc[3]],
		})
	} else {
		points = append(points, models.AnalysisPoint{
			Title:    "Data do leilão não identificada",
			Comment:  "Nenhuma data de leilão/hasta/praça foi encontrada no texto extraído.",
			Status:   models.StatusNaoIdentificado,
			Category: models.CategoryLeilao,
			Priority: models.PriorityMedium,
		})
	}

	judicial := containsAny(lower, auctionTypeKeywords["judicial"])
	extrajudicial := containsAny(lower, auctionTypeKeywords["extrajudicial"])
	switch {
	case judicial && !extrajudicial:
		points = append(points, models.AnalysisPoint{
			Title: "Leilão judicial", Comment: "Indicadores de leilão judicial (execução/processo judicial) identificados.",
			Status: models.StatusConfirmado, Category: models.CategoryLeilao, Priority: models.PriorityMedium,
		})
	case extrajudicial && !judicial:
		points = append(points, models.AnalysisPoint{
			Title: "Leilão extrajudicial", Comment: "Indicadores de alienação fiduciária/leilão extrajudicial identificados.",
			Status: models.StatusConfirmado, Category: models.CategoryLeilao, Priority: models.PriorityMedium,
		})
	}
	return points
}

func (a *Analyzer) notificationPoints(lower, text string, pageOffsets []int) []models.AnalysisPoint {
	var points []models.AnalysisPoint
	mentionsArt889 := patternArt889.MatchString(text)
	hasNotification := patternNotification.MatchString(text)

	if !mentionsArt889 {
		return points
	}

	if hasNotification {
		points = append(points, models.AnalysisPoint{
			Title:    "Intimações do art. 889 do CPC mencionadas",
			Comment:  "O documento cita o art. 889 do CPC e verbos de notificação/intimação.",
			Status:   models.StatusConfirmado,
			Category: models.CategoryPrazo,
			Priority: models.PriorityHigh,
		})
	} else {
		points = append(points, models.AnalysisPoint{
			ID:       "cpc_889_compliance",
			Title:    "Conformidade com art. 889 do CPC incerta",
			Comment:  "O art. 889 do CPC é citado, mas não foram encontrados verbos de notificação das partes exigidas.",
			Status:   models.StatusAlerta,
			Category: models.CategoryLeilao,
			Priority: models.PriorityHigh,
		})
	}

	var missing []string
	for roman, terms := range cpc889Parties {
		if !containsAny(lower, terms) {
			missing = append(missing, roman)
		}
	}
	if len(missing) > 0 {
		points = append(points, models.AnalysisPoint{
			Title:    "Partes do art. 889 possivelmente não mencionadas",
			Comment:  "Não foram encontradas menções textuais a uma ou mais classes de interessados previstas no art. 889.",
			Status:   models.StatusAlerta,
			Category: models.CategoryPrazo,
			Priority: models.PriorityMedium,
			Details:  map[string]string{"missing_classes": strings.Join(missing, ",")},
		})
	}
	return points
}

func (a *Analyzer) financialPoints(text string, pageOffsets []int, analysis *models.TextAnalysis) []models.AnalysisPoint {
	var points []models.AnalysisPoint
	var evaluationPage, minBidPage *int
	if loc := patternEvaluation.FindStringSubmatchIndex(text); loc != nil {
		evaluationPage = ptrInt(pageForOffset(loc[0], pageOffsets))
		points = append(points, models.AnalysisPoint{
			Title: "Valor de avaliação identificado", Comment: "Valor de avaliação do imóvel encontrado no texto.",
			Status: models.StatusConfirmado, Category: models.CategoryFinanceiro, Priority: models.PriorityMedium,
			Page: evaluationPage, RawMatch: text[loc[2]:loc[3]],
		})
	}
	if loc := patternMinimumBid.FindStringSubmatchIndex(text); loc != nil {
		minBidPage = ptrInt(pageForOffset(loc[0], pageOffsets))
		points = append(points, models.AnalysisPoint{
			Title: "Lance mínimo identificado", Comment: "Valor de lance mínimo do leilão encontrado no texto.",
			Status: models.StatusConfirmado, Category: models.CategoryFinanceiro, Priority: models.PriorityMedium,
			Page: minBidPage, RawMatch: text[loc[2]:loc[3]],
		})
	}
	points = append(points, investmentOpportunityPoint(analysis, evaluationPage, minBidPage)...)
	if loc := patternIPTU.FindStringSubmatchIndex(text); loc != nil {
		points = append(points, models.AnalysisPoint{
			Title: "Débito de IPTU mencionado", Comment: "Valor de débito de IPTU encontrado; confirmar responsabilidade pelo pagamento.",
			Status: models.StatusAlerta, Category: models.CategoryFinanceiro, Priority: models.PriorityMedium,
			Page: ptrInt(pageForOffset(loc[0], pageOffsets)), RawMatch: text[loc[2]:loc[3]],
		})
	}
	if loc := patternCondominium.FindStringSubmatchIndex(text); loc != nil {
		points = append(points, models.AnalysisPoint{
			Title: "Débito condominial mencionado", Comment: "Valor de débito condominial encontrado; confirmar responsabilidade pelo pagamento.",
			Status: models.StatusAlerta, Category: models.CategoryFinanceiro, Priority: models.PriorityMedium,
			Page: ptrInt(pageForOffset(loc[0], pageOffsets)), RawMatch: text[loc[2]:loc[3]],
		})
	}
	return points
}

// investmentOpportunityPoint emits an investment_opportunity point when both
// the evaluation value and the minimum bid were parsed and the valuation
// exceeds the minimum bid, carrying the discount percent in Comment
// (spec.md §4.5/S3: "valor da avaliação R$ 300.000,00" + "lance mínimo
// R$ 200.000,00" -> discount "33.3%").
func investmentOpportunityPoint(analysis *models.TextAnalysis, evaluationPage, minBidPage *int) []models.AnalysisPoint {
	evaluation, hasEvaluation := analysis.FinancialData["evaluation_value"]
	minBid, hasMinBid := analysis.FinancialData["minimum_bid"]
	if !hasEvaluation || !hasMinBid || evaluation <= minBid {
		return nil
	}
	discount := (evaluation - minBid) / evaluation * 100
	page := evaluationPage
	if page == nil {
		page = minBidPage
	}
	return []models.AnalysisPoint{{
		ID:       "investment_opportunity",
		Title:    "Oportunidade de investimento identificada",
		Comment:  "Lance mínimo " + strconv.FormatFloat(discount, 'f', 1, 64) + "% abaixo do valor de avaliação.",
		Status:   models.StatusConfirmado,
		Category: models.CategoryInvestimento,
		Priority: models.PriorityHigh,
		Page:     page,
		Details: map[string]string{
			"discount_percent": strconv.FormatFloat(discount, 'f', 1, 64) + "%",
			"evaluation_value": strconv.FormatFloat(evaluation, 'f', 2, 64),
			"minimum_bid":      strconv.FormatFloat(minBid, 'f', 2, 64),
		},
	}}
}

func (a *Analyzer) occupancyPoints(lower, text string, pageOffsets []int) []models.AnalysisPoint {
	var points []models.AnalysisPoint
	switch {
	case patternVacant.MatchString(text) && !patternOccupied.MatchString(text):
		points = append(points, models.AnalysisPoint{
			Title: "Imóvel desocupado", Comment: "Indicadores textuais de imóvel livre de ocupantes.",
			Status: models.StatusConfirmado, Category: models.CategoryInvestimento, Priority: models.PriorityLow,
		})
	case patternOccupied.MatchString(text):
		points = append(points, models.AnalysisPoint{
			Title: "Imóvel possivelmente ocupado", Comment: "Indicadores textuais de ocupação (inquilino, locatário ou similar).",
			Status: models.StatusAlerta, Category: models.CategoryInvestimento, Priority: models.PriorityHigh,
		})
	}
	if patternDispute.MatchString(text) {
		points = append(points, models.AnalysisPoint{
			Title: "Indício de litígio sobre a posse", Comment: "Termos associados a disputa de posse foram encontrados no texto.",
			Status: models.StatusAlerta, Category: models.CategoryInvestimento, Priority: models.PriorityHigh,
		})
	}
	if patternLien.MatchString(text) || patternUnavailability.MatchString(text) {
		points = append(points, models.AnalysisPoint{
			Title: "Ônus ou indisponibilidade identificada", Comment: "Penhora, arresto, hipoteca ou indisponibilidade judicial mencionados.",
			Status: models.StatusAlerta, Category: models.CategoryInvestimento, Priority: models.PriorityHigh,
		})
	}
	return points
}

func (a *Analyzer) riskPoints(lower string) []models.AnalysisPoint {
	var points []models.AnalysisPoint
	highRisk := countMatches(lower, riskKeywords["high_risk"])
	lowRisk := countMatches(lower, riskKeywords["low_risk"])
	if highRisk > lowRisk && highRisk > 0 {
		points = append(points, models.AnalysisPoint{
			Title: "Sinais de risco predominantes", Comment: "O documento contém mais indicadores de risco do que de regularidade.",
			Status: models.StatusAlerta, Category: models.CategoryGeral, Priority: models.PriorityHigh,
		})
	} else if lowRisk > 0 && lowRisk >= highRisk {
		points = append(points, models.AnalysisPoint{
			Title: "Sinais de regularidade predominantes", Comment: "O documento contém indicadores de regularidade (livre de ônus, quitado, etc.).",
			Status: models.StatusConfirmado, Category: models.CategoryGeral, Priority: models.PriorityLow,
		})
	}
	return points
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func countMatches(haystack string, needles []string) int {
	count := 0
	for _, n := range needles {
		count += strings.Count(haystack, n)
	}
	return count
}

// parseBRL converts a Brazilian-formatted monetary string ("1.234,56") into
// a float. Thousands separators are dots, the decimal separator is a comma.
func parseBRL(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
