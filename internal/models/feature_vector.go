package models

// FeatureVector is the fixed 40-dimension numeric representation the
// scoring engine consumes. Every field defaults to its zero value when the
// source text analysis does not populate it; the extractor never omits a
// field, so the ensemble always sees the same shape.
type FeatureVector struct {
	// Size (4)
	TextLength      float64 `json:"text_length"`
	WordCount       float64 `json:"word_count"`
	SentenceCount   float64 `json:"sentence_count"`
	ParagraphCount  float64 `json:"paragraph_count"`

	// Linguistic (8: 6 one-hot language slots + confidence + readability)
	LanguagePT         float64 `json:"language_pt"`
	LanguageEN         float64 `json:"language_en"`
	LanguageES         float64 `json:"language_es"`
	LanguageFR         float64 `json:"language_fr"`
	LanguageDE         float64 `json:"language_de"`
	LanguageOther      float64 `json:"language_other"`
	LanguageConfidence float64 `json:"language_confidence"`
	ReadabilityScore   float64 `json:"readability_score"`

	// Entities (6 typed counts; the total is derived, see TotalEntityCount)
	CNPJCount     float64 `json:"cnpj_count"`
	CPFCount      float64 `json:"cpf_count"`
	PhoneCount    float64 `json:"phone_count"`
	EmailCount    float64 `json:"email_count"`
	MoneyCount    float64 `json:"money_count"`
	CompanyCount  float64 `json:"company_count"`

	// Financial (4)
	HasFinancialValues   bool    `json:"has_financial_values"`
	MaxFinancialValue    float64 `json:"max_financial_value"`
	TotalFinancialValue  float64 `json:"total_financial_value"`
	FinancialKeywordCount float64 `json:"financial_keyword_count"`

	// Urgency (3)
	UrgencyScore        float64 `json:"urgency_score"`
	UrgencyKeywordCount float64 `json:"urgency_keyword_count"`
	DeadlineMentioned   bool    `json:"deadline_mentioned"`

	// Judicial (5)
	AuctionScore            float64 `json:"auction_score"`
	LegalNotificationCount  float64 `json:"legal_notification_count"`
	ValuationIndicatorCount float64 `json:"valuation_indicator_count"`
	PropertyStatusScore     float64 `json:"property_status_score"` // signed: positive favorable, negative adverse
	LegalRestrictionCount   float64 `json:"legal_restriction_count"`

	// Compliance (3)
	LegalComplianceScore  float64 `json:"legal_compliance_score"`
	RiskLevelScore        float64 `json:"risk_level_score"`
	LegalAuthorityMentions float64 `json:"legal_authority_mentions"`

	// Opportunity (4)
	DiscountIndicators      float64 `json:"discount_indicators"`
	MarketValueMentions     float64 `json:"market_value_mentions"`
	AuctionUrgencyScore     float64 `json:"auction_urgency_score"`
	InvestmentViabilityScore float64 `json:"investment_viability_score"`

	// Derived (3)
	EntityDensity        float64 `json:"entity_density"`        // entities / words
	FinancialDensity      float64 `json:"financial_density"`     // money mentions / (len * 1000)
	ContactCompletenessPct float64 `json:"contact_completeness_pct"`
}

// TotalEntityCount sums the six typed entity counts. Stored as a separate
// struct field it would duplicate information already present in the typed
// counts and push the vector to 41 dimensions; the spec's "count, and
// per-type counts" wording is satisfied by deriving it at read time instead.
func (f *FeatureVector) TotalEntityCount() float64 {
	return f.CNPJCount + f.CPFCount + f.PhoneCount + f.EmailCount + f.MoneyCount + f.CompanyCount
}

// FeatureNames returns the 40 field names in a stable order, used by the
// scoring engine to report feature importance against a fixed index and by
// tests asserting dimensionality.
func FeatureNames() []string {
	return []string{
		"text_length", "word_count", "sentence_count", "paragraph_count",
		"language_pt", "language_en", "language_es", "language_fr", "language_de", "language_other",
		"language_confidence", "readability_score",
		"entity_count", "cnpj_count", "cpf_count", "phone_count", "email_count", "money_count", "company_count",
		"has_financial_values", "max_financial_value", "total_financial_value", "financial_keyword_count",
		"urgency_score", "urgency_keyword_count", "deadline_mentioned",
		"auction_score", "legal_notification_count", "valuation_indicator_count", "property_status_score", "legal_restriction_count",
		"legal_compliance_score", "risk_level_score", "legal_authority_mentions",
		"discount_indicators", "market_value_mentions", "auction_urgency_score", "investment_viability_score",
		"entity_density", "financial_density", "contact_completeness_pct",
	}
}

// Dimension count asserted by tests: len(FeatureNames()) must equal 40.
const FeatureDimensions = 40

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ToSlice flattens the vector into the 40-dimension order returned by
// FeatureNames, the shape the scoring engine's estimators operate on.
func (f *FeatureVector) ToSlice() []float64 {
	return []float64{
		f.TextLength, f.WordCount, f.SentenceCount, f.ParagraphCount,
		f.LanguagePT, f.LanguageEN, f.LanguageES, f.LanguageFR, f.LanguageDE, f.LanguageOther,
		f.LanguageConfidence, f.ReadabilityScore,
		f.TotalEntityCount(), f.CNPJCount, f.CPFCount, f.PhoneCount, f.EmailCount, f.MoneyCount, f.CompanyCount,
		b2f(f.HasFinancialValues), f.MaxFinancialValue, f.TotalFinancialValue, f.FinancialKeywordCount,
		f.UrgencyScore, f.UrgencyKeywordCount, b2f(f.DeadlineMentioned),
		f.AuctionScore, f.LegalNotificationCount, f.ValuationIndicatorCount, f.PropertyStatusScore, f.LegalRestrictionCount,
		f.LegalComplianceScore, f.RiskLevelScore, f.LegalAuthorityMentions,
		f.DiscountIndicators, f.MarketValueMentions, f.AuctionUrgencyScore, f.InvestmentViabilityScore,
		f.EntityDensity, f.FinancialDensity, f.ContactCompletenessPct,
	}
}
