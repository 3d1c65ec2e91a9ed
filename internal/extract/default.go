package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultExtractor holds the rule set for the distributor layout we receive
// today. Each rule anchors on a printed label and lazily captures the value
// token after it; the first occurrence in the text wins, so a reprinted
// header or footer can shadow the real field. That imprecision is a known
// property of the layout, not something the rules try to repair.
type DefaultExtractor struct{}

func init() {
	Register("default", DefaultExtractor{})
}

var (
	reClientNumber       = regexp.MustCompile(`Nº DO CLIENTE\s+Nº DA INSTALAÇÃO\s+(\d+)\s+\d+`)
	reInstallationNumber = regexp.MustCompile(`Nº DO CLIENTE\s+Nº DA INSTALAÇÃO\s+\d+\s+(\d+)`)
	// RE2 has no lookahead; the boundary after the name (street prefix or a
	// following number) is consumed instead of asserted.
	reClientName     = regexp.MustCompile(`(?i)(\d{8,11}-\d)\s+(?:ATENÇÃO: DÉBITO AUTOMÁTICO\s+)?([\w\sÀ-ÿ]+?)(?:\s+\d|\s+(?:AV|RUA|PRAÇA|TRAVESSA|RODOVIA)|\s*$)`)
	reAddress        = regexp.MustCompile(`(?i)(RUA|AV|AVENIDA|ALAMEDA|TRAVESSA) [\w\s.]+ \d+[\s\w,-]* [\w\s]+ \d{5}-\d{3} [\w\s]+, [A-Z]{2}`)
	reReferenceMonth = regexp.MustCompile(`Referente a\s+.*?(\w+/\d{4})`)
	reDueDate        = regexp.MustCompile(`Vencimento\s+.*?(\d{2}/\d{2}/\d{4})`)
	reConsumption    = regexp.MustCompile(`Histórico de Consumo.*?[A-Z]{3}/\d{2}\s+(\d+)\s+`)
	reTotalAmount    = regexp.MustCompile(`Valor a pagar \(R\$\)\s+.*?(\d+,\d{2})`)
	reBarcode        = regexp.MustCompile(`(\d{11}-\d\s+\d{11}-\d\s+\d{11}-\d\s+\d{11}-\d)`)
	reBillNumber     = regexp.MustCompile(`NOTA FISCAL Nº (\d+)`)
	reReadings       = regexp.MustCompile(`Nº de diasPróxima.*?(\d{2}/\d{2})(\d{2}/\d{2})`)
	reEnergyTax      = regexp.MustCompile(`ICMS\s+[\d.,]+\s+[\d.,]+\s+([\d.,]+)`)
)

// Extract applies every rule to the whitespace-normalized text. Bill layouts
// break fields across lines unpredictably, so newlines are collapsed to
// spaces before matching.
func (DefaultExtractor) Extract(text string) ExtractedBillData {
	t := strings.ReplaceAll(text, "\n", " ")

	field := func(re *regexp.Regexp, group int) string {
		m := re.FindStringSubmatch(t)
		if m == nil || group >= len(m) {
			return ""
		}
		return strings.TrimSpace(m[group])
	}
	floatField := func(re *regexp.Regexp, group int) float64 {
		raw := strings.Replace(field(re, group), ",", ".", 1)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0
		}
		return v
	}
	intField := func(re *regexp.Regexp, group int) int {
		v, err := strconv.Atoi(field(re, group))
		if err != nil {
			return 0
		}
		return v
	}

	data := ExtractedBillData{
		ClientNumber:       field(reClientNumber, 1),
		InstallationNumber: field(reInstallationNumber, 1),
		ClientName:         field(reClientName, 2),
		Address:            field(reAddress, 0),
		ReferenceMonth:     field(reReferenceMonth, 1),
		DueDate:            field(reDueDate, 1),
		ConsumptionKwh:     intField(reConsumption, 1),
		TotalAmount:        floatField(reTotalAmount, 1),
		Barcode:            field(reBarcode, 1),
		BillNumber:         field(reBillNumber, 1),
		EnergyTax:          floatField(reEnergyTax, 1),
	}

	if m := reReadings.FindStringSubmatch(t); m != nil {
		data.PreviousReading = m[1]
		data.CurrentReading = m[2]
	}

	return data
}
