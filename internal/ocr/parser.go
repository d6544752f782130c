package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
)

// Heuristic patterns tuned for typical thermal-printer receipts. OCR output
// is noisy, so everything here is best effort.
var (
	pricePattern = regexp.MustCompile(`\$?\s*(\d+\.?\d{0,2})`)
	datePattern  = regexp.MustCompile(`(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})|(\d{4}[/\-]\d{1,2}[/\-]\d{1,2})`)
	totalPattern = regexp.MustCompile(`(?i)total|amount due|balance`)
	qtyPattern   = regexp.MustCompile(`(?i)(\d+)\s*x|qty\s*(\d+)`)
)

// Parse extracts structured receipt data from raw OCR text.
func Parse(rawText string) domain.ParsedReceipt {
	return ParseAt(rawText, time.Now().UTC())
}

func ParseAt(rawText string, now time.Time) domain.ParsedReceipt {
	lines := nonEmptyLines(rawText)

	parsed := domain.ParsedReceipt{
		Items:   []domain.LineItem{},
		RawText: rawText,
	}

	if len(lines) > 0 {
		parsed.StoreName = lines[0]
	}

	dateLine := -1
	for i, line := range lines {
		if match := datePattern.FindString(line); match != "" {
			parsed.ReceiptDate = match
			dateLine = i
			break
		}
	}

	for i, line := range lines {
		// The total line ends the item section, even when the keyword
		// appears inside an item name.
		if totalPattern.MatchString(line) {
			if amount, ok := lastPriceToken(line); ok {
				parsed.TotalAmount = amount
			}
			break
		}

		// The line the date came from is metadata, not an item, even
		// though its digits look like price tokens.
		if i == dateLine || skippableLine(line) {
			continue
		}

		if item, ok := extractItem(line); ok {
			parsed.Items = append(parsed.Items, item)
		}
	}

	// No usable total line, or the total read as zero: fall back to the
	// item sum.
	if parsed.TotalAmount.IsZero() && len(parsed.Items) > 0 {
		sum := decimal.Zero
		for _, item := range parsed.Items {
			sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		parsed.TotalAmount = sum
	}

	if parsed.ReceiptDate == "" {
		parsed.ReceiptDate = now.Format("2006-01-02")
	}

	return parsed
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// skippableLine drops receipt boilerplate and fragments too short to be
// items.
func skippableLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "receipt") ||
		strings.Contains(lower, "thank you") ||
		strings.Contains(lower, "welcome") ||
		len(line) < 3
}

// lastPriceToken returns the last monetary token on the line, e.g. the
// amount at the end of "TOTAL $13.00".
func lastPriceToken(line string) (decimal.Decimal, bool) {
	matches := pricePattern.FindAllString(line, -1)
	if len(matches) == 0 {
		return decimal.Zero, false
	}
	raw := strings.NewReplacer("$", "", " ", "", "\t", "").Replace(matches[len(matches)-1])
	return parsePrice(raw)
}

// extractItem reads one item line: the last price token is the amount and
// everything before it is the name, with an optional quantity marker
// ("2x", "2 X", "QTY 2") folded out of the name.
func extractItem(line string) (domain.LineItem, bool) {
	locs := pricePattern.FindAllStringSubmatchIndex(line, -1)
	if len(locs) == 0 {
		return domain.LineItem{}, false
	}

	last := locs[len(locs)-1]
	price, ok := parsePrice(line[last[2]:last[3]])
	if !ok {
		return domain.LineItem{}, false
	}

	name := strings.TrimSpace(line[:last[0]])

	quantity := 1
	if qty, rest, ok := quantityMarker(name); ok && qty >= 1 {
		quantity = qty
		name = rest
	}

	if name == "" || len(name) <= 2 || !price.IsPositive() {
		return domain.LineItem{}, false
	}

	return domain.LineItem{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: price.Div(decimal.NewFromInt(int64(quantity))),
	}, true
}

// quantityMarker finds the first quantity marker in the name and returns the
// quantity plus the name with the marker removed.
func quantityMarker(name string) (int, string, bool) {
	match := qtyPattern.FindStringSubmatchIndex(name)
	if match == nil {
		return 0, name, false
	}

	var digits string
	if match[2] >= 0 {
		digits = name[match[2]:match[3]]
	} else if match[4] >= 0 {
		digits = name[match[4]:match[5]]
	}
	qty, err := strconv.Atoi(digits)
	if err != nil {
		return 0, name, false
	}

	rest := strings.TrimSpace(name[:match[0]] + name[match[1]:])
	return qty, rest, true
}

// parsePrice handles tokens where the OCR dropped the cents, e.g. "5.".
func parsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSuffix(raw, ".")
	if raw == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}
