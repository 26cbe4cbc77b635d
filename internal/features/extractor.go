// Package features turns a models.TextAnalysis into the fixed 40-dimension
// models.FeatureVector the scoring engine consumes.
package features

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Extractor implements interfaces.FeatureExtractor.
type Extractor struct {
	logger arbor.ILogger
}

var _ interfaces.FeatureExtractor = (*Extractor)(nil)

func New(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, analysis *models.TextAnalysis) (*models.FeatureVector, error) {
	fv := &models.FeatureVector{}

	fv.LanguagePT = 1 // documents in this pipeline are always Brazilian Portuguese
	fv.LanguageConfidence = 1

	var words int
	for _, kw := range analysis.Keywords {
		words += len(strings.Fields(kw))
	}

	for _, e := range analysis.Entities {
		switch e.Type {
		case models.EntityCNPJ:
			fv.CNPJCount++
		case models.EntityCPF:
			fv.CPFCount++
		case models.EntityPhone:
			fv.PhoneCount++
		case models.EntityEmail:
			fv.EmailCount++
		case models.EntityMoney:
			fv.MoneyCount++
		case models.EntityCompany:
			fv.CompanyCount++
		}
	}

	if v, ok := analysis.FinancialData["evaluation_value"]; ok {
		fv.HasFinancialValues = true
		fv.MaxFinancialValue = v
	}
	for _, v := range analysis.FinancialData {
		fv.TotalFinancialValue += v
		if v > fv.MaxFinancialValue {
			fv.MaxFinancialValue = v
		}
	}
	fv.FinancialKeywordCount = float64(len(analysis.FinancialData))
	if fv.TotalFinancialValue > 0 {
		fv.HasFinancialValues = true
	}

	var urgencyHits, deadlineHits, auctionHits, notificationHits, valuationHits, complianceHits, riskHits, discountHits, marketHits float64
	var propertyBalance float64
	var restrictionHits float64
	var authorityHits float64

	for _, p := range analysis.Points {
		switch p.Category {
		case models.CategoryLeilao:
			auctionHits++
		case models.CategoryPrazo:
			notificationHits++
			deadlineHits++
		case models.CategoryFinanceiro:
			valuationHits++
		case models.CategoryInvestimento:
			switch p.Status {
			case models.StatusConfirmado:
				propertyBalance++
			case models.StatusAlerta:
				propertyBalance--
				restrictionHits++
			}
		}
		if p.Status == models.StatusAlerta {
			riskHits++
		}
		if p.Status == models.StatusConfirmado {
			complianceHits++
		}
		if p.Priority == models.PriorityHigh {
			urgencyHits++
		}
	}

	fv.UrgencyScore = clamp(urgencyHits * 10)
	fv.UrgencyKeywordCount = urgencyHits
	fv.DeadlineMentioned = deadlineHits > 0

	fv.AuctionScore = clamp(auctionHits * 20)
	fv.LegalNotificationCount = notificationHits
	fv.ValuationIndicatorCount = valuationHits
	fv.PropertyStatusScore = propertyBalance
	fv.LegalRestrictionCount = restrictionHits

	total := complianceHits + riskHits
	if total > 0 {
		fv.LegalComplianceScore = 100 * complianceHits / total
		fv.RiskLevelScore = 100 * riskHits / total
	}
	fv.LegalAuthorityMentions = authorityHits

	if fv.MaxFinancialValue > 0 && fv.TotalFinancialValue > fv.MaxFinancialValue {
		discountHits = 1
		marketHits = 1
	}
	fv.DiscountIndicators = discountHits
	fv.MarketValueMentions = marketHits
	fv.AuctionUrgencyScore = clamp(fv.AuctionScore*0.5 + fv.UrgencyScore*0.5)
	fv.InvestmentViabilityScore = clamp(fv.LegalComplianceScore*0.4 + (100-fv.RiskLevelScore)*0.4 + fv.AuctionScore*0.2)

	entityCount := fv.TotalEntityCount()
	if words > 0 {
		fv.EntityDensity = entityCount / float64(words)
	}
	if fv.TextLength > 0 {
		fv.FinancialDensity = fv.MoneyCount / (fv.TextLength * 1000)
	}
	contactSignals := 0.0
	contactTotal := 3.0
	if fv.PhoneCount > 0 {
		contactSignals++
	}
	if fv.EmailCount > 0 {
		contactSignals++
	}
	if fv.CNPJCount > 0 || fv.CPFCount > 0 {
		contactSignals++
	}
	fv.ContactCompletenessPct = 100 * contactSignals / contactTotal

	fv.WordCount = float64(words)
	fv.SentenceCount = float64(len(analysis.Points))
	fv.ParagraphCount = float64(len(analysis.Entities))

	return fv, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
