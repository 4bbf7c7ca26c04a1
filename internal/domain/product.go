package domain

// ProductRecord represents a catalog product as delivered by the product repository.
// Spec fields are free text exactly as stored (e.g. "8GB", "6.1 inches").
type ProductRecord struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"model" yaml:"model"`
	Brand           string   `json:"brand" yaml:"brand"` // lowercase
	DisplaySize     string   `json:"displaySize" yaml:"display_size"`
	RAM             string   `json:"ram" yaml:"ram"`
	Storage         string   `json:"storage" yaml:"storage"`
	Camera          string   `json:"camera" yaml:"camera"`
	Battery         string   `json:"battery" yaml:"battery"`
	Processor       string   `json:"processor" yaml:"processor"`
	OperatingSystem string   `json:"operatingSystem,omitempty" yaml:"operating_system"`
	ImageURL        string   `json:"imageUrl,omitempty" yaml:"image_url"`
	Price           float64  `json:"price" yaml:"price"`
	Rating          float64  `json:"rating" yaml:"rating"`
	Reviews         int      `json:"reviews" yaml:"reviews"`
	Description     string   `json:"description,omitempty" yaml:"description"`
	Features        []string `json:"features,omitempty" yaml:"features"`
}

// ProductFeatures holds the numeric attributes derived from a ProductRecord.
// Synthetic training rows are ProductFeatures values with no backing record.
type ProductFeatures struct {
	ID             string  `json:"id"`
	Brand          string  `json:"brand"`
	DisplaySize    float64 `json:"displaySizeNumeric"`
	RAM            float64 `json:"ramNumeric"`
	Storage        float64 `json:"storageNumeric"`
	Camera         float64 `json:"cameraNumeric"`
	Battery        float64 `json:"batteryNumeric"`
	Price          float64 `json:"price"`
	PriceRange     int     `json:"priceRange"`
	ProcessorScore float64 `json:"processorScore"`
	Rating         float64 `json:"rating"`
	Reviews        int     `json:"reviews"`
	ReviewsLog     float64 `json:"reviewsCountLog"`
	Synthetic      bool    `json:"synthetic,omitempty"`
}

// MatchResult represents one ranked catalog product for a specification query
type MatchResult struct {
	Product         ProductRecord `json:"product"`
	SimilarityScore float64       `json:"similarityScore"` // 0-1
	MatchedFeatures []string      `json:"matchedFeatures"`
}

// Price range buckets
const (
	PriceRangeBudget   = 1 // < $300
	PriceRangeMidRange = 2 // < $700
	PriceRangePremium  = 3 // < $1000
	PriceRangeFlagship = 4
)

// PriceRangeLabel returns the display label of a price bucket
func PriceRangeLabel(bucket int) string {
	switch bucket {
	case PriceRangeBudget:
		return "Budget (<$300)"
	case PriceRangeMidRange:
		return "Mid-range ($300-700)"
	case PriceRangePremium:
		return "Premium ($700-1000)"
	default:
		return "Flagship (>$1000)"
	}
}
