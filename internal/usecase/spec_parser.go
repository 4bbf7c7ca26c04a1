package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/techcompare/specmatch/internal/domain"
)

// brandAlias maps a canonical brand to the substrings that identify it
type brandAlias struct {
	brand   string
	aliases []string
}

// brandAliases is scanned in order; the first alias found anywhere in the text wins
var brandAliases = []brandAlias{
	{"apple", []string{"apple", "iphone", "ios"}},
	{"samsung", []string{"samsung", "galaxy"}},
	{"google", []string{"google", "pixel"}},
	{"oneplus", []string{"oneplus", "one plus", "1+"}},
	{"xiaomi", []string{"xiaomi", "mi", "redmi", "poco"}},
	{"huawei", []string{"huawei", "honor"}},
	{"oppo", []string{"oppo", "realme"}},
	{"vivo", []string{"vivo", "iqoo"}},
	{"motorola", []string{"motorola", "moto"}},
	{"nokia", []string{"nokia", "hmd"}},
	{"nothing", []string{"nothing"}},
	{"asus", []string{"asus", "rog"}},
	{"sony", []string{"sony", "xperia"}},
	{"lg", []string{"lg"}},
	{"htc", []string{"htc"}},
}

// attributePattern pairs an attribute with its alternatives regex.
// Each alternative carries exactly one capture group.
type attributePattern struct {
	attr    domain.Attribute
	pattern *regexp.Regexp
}

var attributePatterns = []attributePattern{
	{domain.AttrRAM, regexp.MustCompile(`(?i)(\d+)\s*gb\s*ram|ram\s*(\d+)\s*gb|(\d+)\s*gb\s*memory|(\d+)gb\s*lpddr|lpddr\d+\s*(\d+)gb`)},
	{domain.AttrStorage, regexp.MustCompile(`(?i)(\d+)\s*gb\s*storage|storage\s*(\d+)\s*gb|(\d+)\s*gb\s*internal|(\d+)gb\s*ufs|ufs\s*(\d+)gb|(\d+)\s*tb`)},
	{domain.AttrDisplaySize, regexp.MustCompile(`(?i)(\d+\.?\d*)\s*inch|(\d+\.?\d*)\s*"|(\d+\.?\d*)\s*′|(\d+\.?\d*)"`)},
	{domain.AttrCamera, regexp.MustCompile(`(?i)(\d+)\s*mp\s*camera|camera\s*(\d+)\s*mp|(\d+)\s*megapixel|(\d+)mp\s*main|main\s*(\d+)mp`)},
	{domain.AttrBattery, regexp.MustCompile(`(?i)(\d+)\s*mah|battery\s*(\d+)\s*mah|(\d+)\s*milliampere|(\d+)mah\s*battery`)},
	{domain.AttrPrice, regexp.MustCompile(`(?i)\$(\d+)|price\s*(\d+)|(\d+)\s*dollars?|₹(\d+)|rs\.?\s*(\d+)|(\d+)\s*usd`)},
	{domain.AttrProcessor, regexp.MustCompile(`(?i)snapdragon\s*(\d+)|mediatek\s*(\d+)|exynos\s*(\d+)|a(\d+)\s*bionic|kirin\s*(\d+)`)},
}

// gigabytesPerTerabyte converts a TB storage figure into GB
const gigabytesPerTerabyte = 1000

// SpecParser turns free-text specification queries into structured attributes
type SpecParser struct{}

// NewSpecParser creates a new specification parser
func NewSpecParser() *SpecParser {
	return &SpecParser{}
}

// Parse extracts the brand and every recognizable numeric attribute from text.
// It never fails: text with no recognizable content yields brand "unknown" and no attributes.
func (p *SpecParser) Parse(text string) domain.ParsedSpecification {
	lower := strings.ToLower(strings.TrimSpace(text))

	spec := domain.ParsedSpecification{
		Brand:      resolveBrand(lower),
		Attributes: make(map[domain.Attribute]float64),
	}

	for _, ap := range attributePatterns {
		m := ap.pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		raw := firstGroup(m)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if ap.attr == domain.AttrStorage && strings.Contains(lower, "tb") {
			v *= gigabytesPerTerabyte
		}
		spec.Attributes[ap.attr] = v
	}

	return spec
}

func resolveBrand(lower string) string {
	for _, b := range brandAliases {
		for _, alias := range b.aliases {
			if strings.Contains(lower, alias) {
				return b.brand
			}
		}
	}
	return domain.UnknownBrand
}

// firstGroup returns the first non-empty capture group of a submatch
func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// SupportedBrands lists the canonical brands the parser recognizes, in table order
func SupportedBrands() []string {
	brands := make([]string, len(brandAliases))
	for i, b := range brandAliases {
		brands[i] = b.brand
	}
	return brands
}
