package analyzer

import "regexp"

// Regex patterns for Brazilian judicial-auction document analysis, ported
// from the reference implementation's regex/keyword dictionaries for
// dates, monetary values, CPC art. 889 notification compliance, liens, and
// occupancy status.
var (
	patternAuctionDate = regexp.MustCompile(`(?is)(?:leilão|hasta|praça|arrematação).*?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	patternPublicationDate = regexp.MustCompile(`(?is)(?:publicad[oa]|publicação|edital).*?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	patternDate = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})\b`)

	patternMonetary   = regexp.MustCompile(`(?i)R\$\s*([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)
	patternIPTU       = regexp.MustCompile(`(?is)IPTU.*?R\$\s*([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)
	patternCondominium = regexp.MustCompile(`(?is)condom[íi]ni(?:o|al).*?R\$\s*([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)
	patternEvaluation = regexp.MustCompile(`(?is)avalia[çc][ãa]o.*?R\$\s*([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)
	patternMinimumBid = regexp.MustCompile(`(?is)(?:lance\s*m[íi]nimo|valor\s*m[íi]nimo).*?R\$\s*([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{2})?)`)

	patternArt889      = regexp.MustCompile(`(?i)(?:art(?:igo)?\.?\s*889|CPC.*?889)`)
	patternNotification = regexp.MustCompile(`(?i)(?:intimad[oa]s?|notificad[oa]s?|citad[oa]s?|cientificad[oa]s?)`)

	patternUnavailability = regexp.MustCompile(`(?i)(?:indisponibilidade|bloqueio\s+judicial|penhora\s+de\s+rosto)`)
	patternLien           = regexp.MustCompile(`(?i)(?:penhora|arresto|sequestro|hipoteca|aliena[çc][ãa]o\s+fiduci[áa]ria)`)

	patternVacant   = regexp.MustCompile(`(?i)(?:desocupad[oa]|vag[oa]|livre\s+de\s+pessoas|sem\s+ocupantes?|livre\s+e\s+desembaraçad[oa])`)
	patternOccupied = regexp.MustCompile(`(?i)\b(?:ocupad[oa]|inquilin[oa]|locat[áa]rio|arrendat[áa]rio|comodat[áa]rio)`)
	patternDispute  = regexp.MustCompile(`(?i)(?:lit[íi]gio|disputa|controv[ée]rsia|conflito\s+de\s+posse)`)

	patternCNPJ         = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`)
	patternCPF          = regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`)
	patternPhone        = regexp.MustCompile(`\(\d{2}\)\s*\d{4,5}-?\d{4}`)
	patternEmail        = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	patternProcessNumber = regexp.MustCompile(`\b\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}\b`)
)

var auctionTypeKeywords = map[string][]string{
	"judicial": {
		"leilão judicial", "hasta pública", "praça judicial",
		"alienação judicial", "arrematação judicial", "execução",
		"processo judicial", "juiz", "magistrado", "vara", "tribunal",
	},
	"extrajudicial": {
		"leilão extrajudicial", "leilão particular", "alienação fiduciária",
		"consolidação da propriedade", "lei 9.514", "decreto-lei 70/66",
		"credor fiduciário", "agente fiduciário",
	},
}

var riskKeywords = map[string][]string{
	"high_risk": {
		"indisponibilidade", "bloqueio judicial", "sequestro", "arresto",
		"ocupação irregular", "invasão", "litígio", "ação possessória",
		"reintegração de posse", "recurso pendente", "agravo", "apelação", "embargos",
	},
	"low_risk": {
		"livre e desembaraçado", "sem ônus", "desocupado", "regular",
		"em ordem", "sem pendências", "quitado", "sem restrições",
	},
}

// cpc889Parties lists the CPC art. 889 notification classes (I-VIII), each
// keyed by the roman numeral the statute uses, so the analyzer can report
// which required party types were and weren't mentioned.
var cpc889Parties = map[string][]string{
	"I":    {"executado", "devedor", "ex-proprietário"},
	"II":   {"cônjuge", "esposo", "esposa", "companheiro", "companheira"},
	"III":  {"coproprietário", "condômino"},
	"IV":   {"titular de direito real", "usufrutuário", "superficiário"},
	"V":    {"credor hipotecário", "credor com garantia real"},
	"VI":   {"credor fiduciário", "agente fiduciário"},
	"VII":  {"promitente comprador", "promissário comprador"},
	"VIII": {"união", "estado", "município", "ente público"},
}
