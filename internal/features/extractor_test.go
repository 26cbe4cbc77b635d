package features

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/leadforge/internal/models"
)

func TestExtractAlwaysMarksPortugueseLanguage(t *testing.T) {
	e := New(arbor.NewLogger())
	fv, err := e.Extract(context.Background(), &models.TextAnalysis{})
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.LanguagePT != 1 {
		t.Fatalf("LanguagePT = %v, want 1", fv.LanguagePT)
	}
	if fv.LanguageConfidence != 1 {
		t.Fatalf("LanguageConfidence = %v, want 1", fv.LanguageConfidence)
	}
}

func TestExtractCountsEntitiesByType(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		Entities: []models.Entity{
			{Type: models.EntityCNPJ, Value: "12.345.678/0001-99"},
			{Type: models.EntityCPF, Value: "123.456.789-00"},
			{Type: models.EntityPhone, Value: "(11) 91234-5678"},
			{Type: models.EntityEmail, Value: "a@b.com"},
			{Type: models.EntityMoney, Value: "R$ 100,00"},
			{Type: models.EntityMoney, Value: "R$ 200,00"},
			{Type: models.EntityCompany, Value: "Empresa LTDA"},
		},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.CNPJCount != 1 || fv.CPFCount != 1 || fv.PhoneCount != 1 || fv.EmailCount != 1 {
		t.Fatalf("typed entity counts = %+v, want 1 each for cnpj/cpf/phone/email", fv)
	}
	if fv.MoneyCount != 2 {
		t.Fatalf("MoneyCount = %v, want 2", fv.MoneyCount)
	}
	if fv.CompanyCount != 1 {
		t.Fatalf("CompanyCount = %v, want 1", fv.CompanyCount)
	}
	if fv.TotalEntityCount() != 7 {
		t.Fatalf("TotalEntityCount() = %v, want 7", fv.TotalEntityCount())
	}
}

func TestExtractFinancialDataAggregation(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		FinancialData: map[string]float64{
			"evaluation_value": 350000,
			"minimum_bid":      200000,
		},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if !fv.HasFinancialValues {
		t.Fatal("HasFinancialValues = false, want true")
	}
	if fv.MaxFinancialValue != 350000 {
		t.Fatalf("MaxFinancialValue = %v, want 350000", fv.MaxFinancialValue)
	}
	if fv.TotalFinancialValue != 550000 {
		t.Fatalf("TotalFinancialValue = %v, want 550000", fv.TotalFinancialValue)
	}
	if fv.FinancialKeywordCount != 2 {
		t.Fatalf("FinancialKeywordCount = %v, want 2", fv.FinancialKeywordCount)
	}
}

func TestExtractAuctionAndNotificationScoresFromPoints(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		Points: []models.AnalysisPoint{
			{Category: models.CategoryLeilao, Status: models.StatusConfirmado, Priority: models.PriorityHigh},
			{Category: models.CategoryPrazo, Status: models.StatusAlerta, Priority: models.PriorityMedium},
		},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.AuctionScore != 20 {
		t.Fatalf("AuctionScore = %v, want 20 (1 auction hit * 20)", fv.AuctionScore)
	}
	if fv.LegalNotificationCount != 1 {
		t.Fatalf("LegalNotificationCount = %v, want 1", fv.LegalNotificationCount)
	}
	if !fv.DeadlineMentioned {
		t.Fatal("DeadlineMentioned = false, want true when a prazo point is present")
	}
	if fv.UrgencyScore != 10 {
		t.Fatalf("UrgencyScore = %v, want 10 (1 high-priority point * 10)", fv.UrgencyScore)
	}
}

func TestExtractComplianceAndRiskScoresBalanceConfirmedAgainstAlerta(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		Points: []models.AnalysisPoint{
			{Status: models.StatusConfirmado},
			{Status: models.StatusConfirmado},
			{Status: models.StatusConfirmado},
			{Status: models.StatusAlerta},
		},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.LegalComplianceScore != 75 {
		t.Fatalf("LegalComplianceScore = %v, want 75 (3 confirmed of 4 total)", fv.LegalComplianceScore)
	}
	if fv.RiskLevelScore != 25 {
		t.Fatalf("RiskLevelScore = %v, want 25 (1 alerta of 4 total)", fv.RiskLevelScore)
	}
}

func TestExtractPropertyStatusScoreIsSignedByInvestimentoCategory(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		Points: []models.AnalysisPoint{
			{Category: models.CategoryInvestimento, Status: models.StatusConfirmado},
			{Category: models.CategoryInvestimento, Status: models.StatusConfirmado},
			{Category: models.CategoryInvestimento, Status: models.StatusAlerta},
		},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.PropertyStatusScore != 1 {
		t.Fatalf("PropertyStatusScore = %v, want 1 (2 confirmed - 1 alerta)", fv.PropertyStatusScore)
	}
	if fv.LegalRestrictionCount != 1 {
		t.Fatalf("LegalRestrictionCount = %v, want 1", fv.LegalRestrictionCount)
	}
}

func TestExtractContactCompletenessPercentage(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		Entities: []models.Entity{
			{Type: models.EntityPhone, Value: "11912345678"},
			{Type: models.EntityEmail, Value: "a@b.com"},
		},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	// phone + email present, no cnpj/cpf -> 2 of 3 contact signals
	want := 100.0 * 2.0 / 3.0
	if fv.ContactCompletenessPct != want {
		t.Fatalf("ContactCompletenessPct = %v, want %v", fv.ContactCompletenessPct, want)
	}
}

func TestExtractWordCountFromKeywords(t *testing.T) {
	e := New(arbor.NewLogger())
	analysis := &models.TextAnalysis{
		Keywords: []string{"leilão judicial", "praça única"},
	}
	fv, err := e.Extract(context.Background(), analysis)
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.WordCount != 4 {
		t.Fatalf("WordCount = %v, want 4", fv.WordCount)
	}
}

func TestExtractEmptyAnalysisProducesZeroValueVector(t *testing.T) {
	e := New(arbor.NewLogger())
	fv, err := e.Extract(context.Background(), &models.TextAnalysis{})
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if fv.TotalEntityCount() != 0 {
		t.Fatalf("TotalEntityCount() = %v, want 0 for an empty analysis", fv.TotalEntityCount())
	}
	if fv.HasFinancialValues {
		t.Fatal("HasFinancialValues = true, want false for an empty analysis")
	}
	if fv.AuctionScore != 0 {
		t.Fatalf("AuctionScore = %v, want 0 for an empty analysis", fv.AuctionScore)
	}
}
