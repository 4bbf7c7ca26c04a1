package domain

// SearchRequest is a free-text specification search
type SearchRequest struct {
	Specification string `json:"specification" binding:"required"`
	TopK          int    `json:"top_k"`
	UserID        string `json:"user_id"`
}

// SearchResult is the ranked answer to a SearchRequest
type SearchResult struct {
	Query               string              `json:"query"`
	ParsedSpecification ParsedSpecification `json:"parsedSpecification"`
	TotalMatches        int                 `json:"totalMatches"`
	Results             []MatchResult       `json:"results"`
}

// CountByLabel is one row of a grouped count
type CountByLabel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CatalogStatistics summarizes the product catalog
type CatalogStatistics struct {
	TotalProducts     int            `json:"totalProducts"`
	TotalBrands       int            `json:"totalBrands"`
	AveragePrice      float64        `json:"avgPrice"`
	PriceRanges       []CountByLabel `json:"priceRanges"`
	BrandDistribution []CountByLabel `json:"brandDistribution"`
}

// Comparison holds products side by side with summary insights
type Comparison struct {
	Products      []ProductRecord `json:"products"`
	Cheapest      ProductRecord   `json:"cheapest"`
	MostExpensive ProductRecord   `json:"mostExpensive"`
	HighestRated  ProductRecord   `json:"highestRated"`
	LowestRated   ProductRecord   `json:"lowestRated"`
}

// Recommendations lists products similar in price to a base product
type Recommendations struct {
	BaseProduct     ProductRecord   `json:"baseProduct"`
	Recommendations []ProductRecord `json:"recommendations"`
}

// ModelStatus reports the active epoch and the surrounding catalog
type ModelStatus struct {
	ModelLoaded      bool       `json:"modelLoaded"`
	ModelInfo        *ModelInfo `json:"modelInfo,omitempty"`
	DatabaseProducts int        `json:"databaseProducts"`
	SupportedBrands  []string   `json:"supportedBrands"`
	Training         bool       `json:"training"`
}
